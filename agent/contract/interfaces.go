package contract

import "context"

// HistoryStore persists plain turn history between requests. The engine never
// touches it; durability is owned by the caller wiring.
type HistoryStore interface {
	Load(ctx context.Context, conversationID string) ([]HistoryEntry, error)
	Save(ctx context.Context, conversationID string, entries []HistoryEntry) error
	Delete(ctx context.Context, conversationID string) error
}
