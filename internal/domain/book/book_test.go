package book

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookstore-ledger/internal/domain/shared"
)

func intPtr(v int) *int { return &v }

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"physical", "ebook", "audiobook"} {
		f, err := ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, Format(name), f)
	}

	_, err := ParseFormat("vinyl")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestBook_FormatStock(t *testing.T) {
	b := &Book{Formats: []FormatStock{
		{Format: FormatPhysical, Stock: intPtr(2)},
		{Format: FormatEbook},
	}}

	physical, ok := b.FormatStock(FormatPhysical)
	require.True(t, ok)
	assert.True(t, physical.Tracked())
	assert.True(t, physical.Covers(2))
	assert.False(t, physical.Covers(3))

	ebook, ok := b.FormatStock(FormatEbook)
	require.True(t, ok)
	assert.False(t, ebook.Tracked())
	assert.True(t, ebook.Covers(1000))

	_, ok = b.FormatStock(FormatAudiobook)
	assert.False(t, ok)
}

func TestNewBorrowRecord(t *testing.T) {
	now := time.Now()

	rec, err := NewBorrowRecord(uuid.New(), uuid.New(), now.Add(48*time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, FormatPhysical, rec.Format)

	_, err = NewBorrowRecord(uuid.New(), uuid.New(), now.Add(-time.Minute), now)
	assert.ErrorIs(t, err, ErrDueDateInPast)
}

func TestNewPurchaseRecord(t *testing.T) {
	rec, err := NewPurchaseRecord(uuid.New(), uuid.New(), FormatPhysical, 3, 10, "")
	require.NoError(t, err)
	assert.Equal(t, int64(30), rec.Amount)
	assert.Equal(t, 3, rec.Quantity)

	_, err = NewPurchaseRecord(uuid.New(), uuid.New(), FormatPhysical, 0, 10, "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = NewPurchaseRecord(uuid.New(), uuid.New(), FormatPhysical, MaxQuantity+1, 10, "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = NewPurchaseRecord(uuid.New(), uuid.New(), FormatPhysical, MaxQuantity, math.MaxInt64/10, "")
	assert.ErrorIs(t, err, shared.ErrAmountOutOfRange)
}

func TestRepositoryErrors_Is(t *testing.T) {
	id := uuid.New()
	assert.True(t, errors.Is(ErrBookNotFound{BookID: id}, ErrBookNotFound{}))
	assert.True(t, errors.Is(ErrInsufficientStock{BookID: id, Format: FormatPhysical}, ErrInsufficientStock{}))
	assert.True(t, errors.Is(ErrBorrowNotFound{BookID: id}, ErrBorrowNotFound{}))
	assert.True(t, errors.Is(ErrDuplicateBorrow{BookID: id}, ErrDuplicateBorrow{}))
	assert.False(t, errors.Is(ErrDuplicateBorrow{BookID: id}, ErrBorrowNotFound{}))
}
