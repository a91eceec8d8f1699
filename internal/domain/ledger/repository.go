package ledger

import (
	"context"

	"github.com/google/uuid"
)

// Repository manages history entries with pagination support
type Repository interface {
	// Upsert stores entry unless a newer snapshot of the same reference is already present
	Upsert(ctx context.Context, entry *Entry) error
	GetByReference(ctx context.Context, reference string) (*Entry, error)
	GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	Reference string
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.Reference
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.Reference == "" {
		return true
	}
	return e.Reference == t.Reference
}
