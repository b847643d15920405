package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedProvider struct {
	vector []float32
	err    error
	block  chan struct{}
}

func (p *scriptedProvider) Compute(ctx context.Context, text string) ([]float32, error) {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.vector, p.err
}

func TestWorkerEmbed(t *testing.T) {
	t.Run("returns the provider vector", func(t *testing.T) {
		provider := &scriptedProvider{vector: []float32{1, 2, 3}}
		w := NewWorker(provider, "v1", 3, zap.NewNop())
		defer w.Close()

		got, err := w.Embed(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 2, 3}, got)
		assert.Equal(t, "v1", w.ModelVersion())
		assert.Equal(t, 3, w.Dim())
	})

	t.Run("provider error propagates", func(t *testing.T) {
		provider := &scriptedProvider{err: fmt.Errorf("model unavailable")}
		w := NewWorker(provider, "v1", 3, zap.NewNop())
		defer w.Close()

		_, err := w.Embed(context.Background(), "hello")
		assert.ErrorContains(t, err, "model unavailable")
	})

	t.Run("dimension mismatch is an error", func(t *testing.T) {
		provider := &scriptedProvider{vector: []float32{1, 2}}
		w := NewWorker(provider, "v1", 3, zap.NewNop())
		defer w.Close()

		_, err := w.Embed(context.Background(), "hello")
		assert.ErrorContains(t, err, "dimensions")
	})

	t.Run("cancelled context unblocks the caller", func(t *testing.T) {
		block := make(chan struct{})
		defer close(block)
		provider := &scriptedProvider{vector: []float32{1, 2, 3}, block: block}
		w := NewWorker(provider, "v1", 3, zap.NewNop())
		defer w.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := w.Embed(ctx, "hello")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("embed after close fails", func(t *testing.T) {
		w := NewWorker(&scriptedProvider{vector: []float32{1, 2, 3}}, "v1", 3, zap.NewNop())
		w.Close()

		// Give the worker goroutine a moment to observe the close.
		time.Sleep(10 * time.Millisecond)

		_, err := w.Embed(context.Background(), "hello")
		assert.Error(t, err)
	})

	t.Run("serializes concurrent requests", func(t *testing.T) {
		provider := &scriptedProvider{vector: []float32{1, 2, 3}}
		w := NewWorker(provider, "v1", 3, zap.NewNop())
		defer w.Close()

		done := make(chan error, 8)
		for i := 0; i < 8; i++ {
			go func(i int) {
				_, err := w.Embed(context.Background(), fmt.Sprintf("text-%d", i))
				done <- err
			}(i)
		}
		for i := 0; i < 8; i++ {
			assert.NoError(t, <-done)
		}
	})
}

func TestLocalProvider(t *testing.T) {
	provider := NewLocalProvider(16)
	ctx := context.Background()

	t.Run("deterministic per text", func(t *testing.T) {
		a, err := provider.Compute(ctx, "groceries")
		require.NoError(t, err)
		b, err := provider.Compute(ctx, "groceries")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("different texts differ", func(t *testing.T) {
		a, _ := provider.Compute(ctx, "groceries")
		b, _ := provider.Compute(ctx, "taxes")
		assert.NotEqual(t, a, b)
	})

	t.Run("unit norm", func(t *testing.T) {
		v, err := provider.Compute(ctx, "groceries")
		require.NoError(t, err)
		require.Len(t, v, 16)

		var mag float64
		for _, x := range v {
			mag += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, math.Sqrt(mag), 1e-6)
	})
}

func TestHTTPProvider(t *testing.T) {
	t.Run("posts text and parses the vector", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req embedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "buy milk", req.Text)
			json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{0.1, 0.2}})
		}))
		defer server.Close()

		provider := NewHTTPProvider(server.URL, time.Second)
		got, err := provider.Compute(context.Background(), "buy milk")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2}, got)
	})

	t.Run("non-200 status is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		provider := NewHTTPProvider(server.URL, time.Second)
		_, err := provider.Compute(context.Background(), "buy milk")
		assert.ErrorContains(t, err, "status 502")
	})

	t.Run("empty vector is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(embedResponse{})
		}))
		defer server.Close()

		provider := NewHTTPProvider(server.URL, time.Second)
		_, err := provider.Compute(context.Background(), "buy milk")
		assert.ErrorContains(t, err, "empty vector")
	})
}
