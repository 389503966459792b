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

func testWhaleEvent(tradeID, symbol string, observedAt int64) *domain.WhaleEvent {
	return &domain.WhaleEvent{
		TokenSymbol: symbol,
		Trigger: domain.NormalizedTrade{
			ID:             tradeID,
			TxSignature:    "sig-" + tradeID,
			EventIndex:     0,
			Slot:           2000,
			Timestamp:      observedAt,
			TokenSymbol:    symbol,
			TokenMint:      "So11111111111111111111111111111111111111112",
			Side:           domain.SideBuy,
			BaseAmount:     decimal.NewFromInt(20),
			QuoteAmountUSD: decimal.NewFromInt(3000),
			Venue:          domain.VenueRaydium,
			TradeKind:      domain.TradeKindAMMSwap,
		},
		WindowVolume: decimal.RequireFromString("5500.25"),
		WindowCount:  2,
		Severity:     domain.SeverityNormal,
		ObservedAt:   observedAt,
	}
}

func TestWhaleEventStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewWhaleEventStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testWhaleEvent("t1", "SOL", 1000)))
	require.NoError(t, store.Insert(ctx, testWhaleEvent("t2", "SOL", 2000)))
	require.NoError(t, store.Insert(ctx, testWhaleEvent("t3", "JUP", 1500)))

	got, err := store.GetByToken(ctx, "SOL")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "t1", got[0].Trigger.ID)
	assert.Equal(t, "t2", got[1].Trigger.ID)
	assert.Equal(t, "sig-t1", got[0].Trigger.TxSignature)
	assert.Equal(t, domain.VenueRaydium, got[0].Trigger.Venue)
	assert.True(t, got[0].WindowVolume.Equal(decimal.RequireFromString("5500.25")),
		"window volume round trip, got %s", got[0].WindowVolume)
	assert.True(t, got[0].Trigger.QuoteAmountUSD.Equal(decimal.NewFromInt(3000)))
	assert.Equal(t, domain.SeverityNormal, got[0].Severity)
}

func TestWhaleEventStore_DuplicateTrigger(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewWhaleEventStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testWhaleEvent("t1", "SOL", 1000)))

	err := store.Insert(ctx, testWhaleEvent("t1", "SOL", 1000))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestWhaleEventStore_GetByTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewWhaleEventStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testWhaleEvent("t1", "SOL", 1000)))
	require.NoError(t, store.Insert(ctx, testWhaleEvent("t2", "SOL", 2000)))
	require.NoError(t, store.Insert(ctx, testWhaleEvent("t3", "SOL", 3000)))

	got, err := store.GetByTimeRange(ctx, 1000, 3000)
	require.NoError(t, err)
	require.Len(t, got, 2, "end bound is exclusive")
	assert.Equal(t, "t1", got[0].Trigger.ID)
	assert.Equal(t, "t2", got[1].Trigger.ID)
}

func TestWhaleEventStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewWhaleEventStore(pool)

	assert.ErrorIs(t, store.Insert(context.Background(), nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(context.Background(), &domain.WhaleEvent{TokenSymbol: "SOL"}), storage.ErrInvalidInput)
}
