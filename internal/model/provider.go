package model

import (
	"context"
	"time"

	"github.com/rensmac/chat-gateway/internal/domain"
)

// Response contains a model completion result
type Response struct {
	Answer     string
	Model      string
	TokensUsed int
	Latency    time.Duration
}

// Provider defines the interface for remote model backends
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Complete answers a question given prior conversation history
	Complete(ctx context.Context, question string, history []domain.Exchange) (*Response, error)

	// Warm opens count parallel connections with a minimal request and
	// returns the average time one of them took
	Warm(ctx context.Context, count int) (time.Duration, error)
}
