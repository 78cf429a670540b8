package conversion

import (
	"context"

	"github.com/google/uuid"
)

// RecordRepository stores conversion history. List returns newest first
// together with the total number of matching records.
type RecordRepository interface {
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Record, int, error)
}
