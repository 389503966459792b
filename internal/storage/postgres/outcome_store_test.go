package postgres

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-whale-watch/internal/domain"
	"solana-whale-watch/internal/storage"
)

func testOutcome(signalID string, completedAt int64, status string) *domain.ExecutionOutcome {
	return &domain.ExecutionOutcome{
		Signal: domain.TradeSignal{
			ID:          signalID,
			TokenSymbol: "SOL",
			TokenMint:   "So11111111111111111111111111111111111111112",
			Direction:   domain.SideBuy,
			SizeUSD:     decimal.RequireFromString("6000.50"),
			Confidence:  0.9,
			GeneratedAt: completedAt - 120,
		},
		VenueUsed:     "raydium",
		Status:        status,
		Reason:        "",
		ExecutedPrice: decimal.RequireFromString("150.123456"),
		Attempts: []domain.VenueAttempt{
			{Venue: "jupiter", Reason: "venue timeout"},
			{Venue: "raydium"},
		},
		CompletedAt: completedAt,
	}
}

func TestOutcomeStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOutcomeStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testOutcome("sig-1", 5000, domain.StatusFilled)))

	got, err := store.GetBySignalID(ctx, "sig-1")
	require.NoError(t, err)

	assert.Equal(t, "sig-1", got.Signal.ID)
	assert.Equal(t, domain.SideBuy, got.Signal.Direction)
	assert.True(t, got.Signal.SizeUSD.Equal(decimal.RequireFromString("6000.50")))
	assert.Equal(t, 0.9, got.Signal.Confidence)
	assert.Equal(t, "raydium", got.VenueUsed)
	assert.Equal(t, domain.StatusFilled, got.Status)
	assert.True(t, got.ExecutedPrice.Equal(decimal.RequireFromString("150.123456")))
	require.Len(t, got.Attempts, 2)
	assert.Equal(t, "jupiter", got.Attempts[0].Venue)
	assert.Equal(t, "venue timeout", got.Attempts[0].Reason)
	assert.Empty(t, got.Attempts[1].Reason)
}

func TestOutcomeStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOutcomeStore(pool)

	_, err := store.GetBySignalID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestOutcomeStore_DuplicateSignal(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOutcomeStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testOutcome("sig-1", 5000, domain.StatusFilled)))

	err := store.Insert(ctx, testOutcome("sig-1", 6000, domain.StatusFailed))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestOutcomeStore_GetByTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOutcomeStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testOutcome("sig-1", 1000, domain.StatusFilled)))
	require.NoError(t, store.Insert(ctx, testOutcome("sig-2", 2000, domain.StatusRejected)))
	require.NoError(t, store.Insert(ctx, testOutcome("sig-3", 3000, domain.StatusFailed)))

	got, err := store.GetByTimeRange(ctx, 1500, 3000)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "sig-2", got[0].Signal.ID)
	assert.Equal(t, domain.StatusRejected, got[0].Status)
}
