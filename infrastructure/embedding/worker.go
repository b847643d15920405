package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Provider computes raw embedding vectors. Implementations are not required
// to be safe for concurrent use; the worker serializes access.
type Provider interface {
	Compute(ctx context.Context, text string) ([]float32, error)
}

type request struct {
	ctx   context.Context
	text  string
	reply chan response
}

type response struct {
	vector []float32
	err    error
}

// Worker owns a Provider on a dedicated goroutine and serializes all
// embedding requests through it. Each request carries a one-shot reply
// channel, so callers block only for their own computation.
type Worker struct {
	provider     Provider
	modelVersion string
	dim          int
	requests     chan request
	done         chan struct{}
	logger       *zap.Logger
}

// NewWorker starts the worker goroutine. Close must be called to stop it.
func NewWorker(provider Provider, modelVersion string, dim int, logger *zap.Logger) *Worker {
	w := &Worker{
		provider:     provider,
		modelVersion: modelVersion,
		dim:          dim,
		requests:     make(chan request),
		done:         make(chan struct{}),
		logger:       logger,
	}
	go w.run()
	return w
}

func (w *Worker) run() {
	w.logger.Info("Embedding worker started",
		zap.String("modelVersion", w.modelVersion),
		zap.Int("dim", w.dim),
	)
	for {
		select {
		case <-w.done:
			w.logger.Info("Embedding worker stopped")
			return
		case req := <-w.requests:
			vector, err := w.provider.Compute(req.ctx, req.text)
			if err == nil && len(vector) != w.dim {
				err = fmt.Errorf("provider returned %d dimensions, want %d", len(vector), w.dim)
			}
			req.reply <- response{vector: vector, err: err}
		}
	}
}

// Embed submits a text to the worker and blocks until its vector is ready,
// the context is cancelled, or the worker is closed.
func (w *Worker) Embed(ctx context.Context, text string) ([]float32, error) {
	req := request{ctx: ctx, text: text, reply: make(chan response, 1)}

	select {
	case w.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.done:
		return nil, fmt.Errorf("embedding worker closed")
	}

	select {
	case resp := <-req.reply:
		return resp.vector, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ModelVersion identifies the model producing vectors.
func (w *Worker) ModelVersion() string { return w.modelVersion }

// Dim returns the fixed vector dimensionality.
func (w *Worker) Dim() int { return w.dim }

// Close stops the worker goroutine. In-flight requests complete; subsequent
// Embed calls fail.
func (w *Worker) Close() {
	close(w.done)
}
