package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"net/http"
	"time"

	pkgerrors "taskgraph/pkg/errors"
)

// HTTPProvider computes embeddings by calling an external inference service.
type HTTPProvider struct {
	endpoint string
	client   *http.Client
}

// NewHTTPProvider creates a provider against an inference endpoint that
// accepts {"text": ...} and answers {"embedding": [...]}.
func NewHTTPProvider(endpoint string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Compute posts the text to the inference service and returns its vector.
func (p *HTTPProvider) Compute(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, pkgerrors.NewExternalError("embedding", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned status %d", resp.StatusCode)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("embedding service returned empty vector")
	}

	return parsed.Embedding, nil
}

// LocalProvider derives a deterministic unit vector from the text. It stands
// in for a real model in development and tests: equal texts get equal
// vectors, different texts almost surely do not.
type LocalProvider struct {
	dim int
}

// NewLocalProvider creates a deterministic provider of the given
// dimensionality.
func NewLocalProvider(dim int) *LocalProvider {
	return &LocalProvider{dim: dim}
}

// Compute returns a normalized vector seeded by the text's hash.
func (p *LocalProvider) Compute(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vector := make([]float32, p.dim)
	var mag float64
	for i := range vector {
		v := rng.NormFloat64()
		vector[i] = float32(v)
		mag += v * v
	}

	mag = math.Sqrt(mag)
	if mag == 0 {
		return vector, nil
	}
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / mag)
	}
	return vector, nil
}
