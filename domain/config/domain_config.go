package config

import "time"

// DomainConfig holds configurable business rules and constraints
type DomainConfig struct {
	// Tag fragment handling
	TagMarkers string // characters that introduce a tag fragment, stripped before use

	// Semantic search
	EmbeddingDim        int
	SimilarityThreshold float64
	MaxSearchResults    int

	// Embedding backfill throttling
	EmbeddingBatchSize  int
	EmbeddingBatchPause time.Duration

	// Search debouncing
	SearchDebounce time.Duration

	// Health score penalties
	CriticalErrorPenalty float64
	WarningWeight        float64
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		TagMarkers: "#/",

		EmbeddingDim:        384,
		SimilarityThreshold: 0.4,
		MaxSearchResults:    3,

		EmbeddingBatchSize:  5,
		EmbeddingBatchPause: 500 * time.Millisecond,

		SearchDebounce: 300 * time.Millisecond,

		CriticalErrorPenalty: 10,
		WarningWeight:        0.5,
	}
}
