package mongo

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/bookstore-ledger/internal/domain/ledger"
)

func TestNewLedgerRepository(t *testing.T) {
	repo := NewLedgerRepository(slog.Default(), &mongo.Database{})

	assert.NotNil(t, repo)
	assert.IsType(t, &LedgerRepository{}, repo)
}

func TestUpsertFilter(t *testing.T) {
	updatedAt := time.Now()
	entry := &ledger.Entry{Reference: "ref-1", UpdatedAt: updatedAt}

	filter := upsertFilter(entry)

	assert.Equal(t, "ref-1", filter["reference"])
	assert.Equal(t, bson.M{"$lte": updatedAt}, filter["updated_at"])
}

func TestUserFilter(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, bson.M{"user_id": id}, userFilter(id))
}

func TestPageOptions(t *testing.T) {
	opts := pageOptions(20, 40)

	assert.Equal(t, int64(20), *opts.Limit)
	assert.Equal(t, int64(40), *opts.Skip)
	assert.Equal(t, bson.D{{Key: "created_at", Value: -1}}, opts.Sort)
}
