package analysis

import (
	"context"
	"encoding/json"
)

// Classifier port (Classification Service)
type Classifier interface {
	// Health returns the status string reported by the service.
	Health(ctx context.Context) (string, error)
	// ModelInfo returns the service's model description untouched.
	ModelInfo(ctx context.Context) (json.RawMessage, error)
	Predict(ctx context.Context, req *Request) (*Result, error)
}

// HistoryStore port (key-value persistence for the history log).
// Load returns an empty log and nil error when nothing is stored under key.
type HistoryStore interface {
	Load(ctx context.Context, key string) ([]HistoryEntry, error)
	Save(ctx context.Context, key string, entries []HistoryEntry) error
}
