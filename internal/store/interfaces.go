package store

import (
	"context"

	"github.com/ledgerline/ingest/internal/domain"
)

// InsertResult is the store's reply to a batch insert. The store applies its
// own duplicate handling on top of the pipeline's; both counts surface here.
type InsertResult struct {
	Saved      []domain.Transaction `json:"saved"`
	Duplicates int                  `json:"duplicates"`
	Skipped    int                  `json:"skipped"`
}

// RecordStore is the persisted-transaction collaborator. The pipeline only
// constructs candidates; the store owns every record once inserted.
type RecordStore interface {
	ListAll(ctx context.Context) ([]domain.Transaction, error)
	InsertMany(ctx context.Context, candidates []domain.Transaction) (*InsertResult, error)
	UpdateOne(ctx context.Context, id string, patch map[string]any) (*domain.Transaction, error)
	DeleteOne(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}
