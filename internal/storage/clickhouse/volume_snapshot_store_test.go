package clickhouse

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-whale-watch/internal/domain"
	"solana-whale-watch/internal/storage"
)

func testSnapshot(symbol string, ts int64, volume string) *domain.VolumeSnapshot {
	return &domain.VolumeSnapshot{
		TokenSymbol: symbol,
		Timestamp:   ts,
		VolumeUSD:   decimal.RequireFromString(volume),
		TradeCount:  3,
		Severity:    domain.SeverityNormal,
	}
}

func TestVolumeSnapshotStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewVolumeSnapshotStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, nil), "empty batch is a no-op")

	err := store.InsertBulk(ctx, []*domain.VolumeSnapshot{
		testSnapshot("SOL", 2000, "7500.50"),
		testSnapshot("SOL", 1000, "5500.25"),
	})
	require.NoError(t, err)

	got, err := store.GetByToken(ctx, "SOL", 0, 5000)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(1000), got[0].Timestamp)
	assert.Equal(t, int64(2000), got[1].Timestamp)
	assert.True(t, got[0].VolumeUSD.Equal(decimal.RequireFromString("5500.25")),
		"volume round trip, got %s", got[0].VolumeUSD)
	assert.Equal(t, 3, got[0].TradeCount)
	assert.Equal(t, domain.SeverityNormal, got[0].Severity)
}

func TestVolumeSnapshotStore_IntraBatchDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewVolumeSnapshotStore(conn)

	err := store.InsertBulk(context.Background(), []*domain.VolumeSnapshot{
		testSnapshot("SOL", 1000, "100"),
		testSnapshot("SOL", 1000, "200"),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestVolumeSnapshotStore_DuplicateAgainstExisting(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewVolumeSnapshotStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.VolumeSnapshot{testSnapshot("SOL", 1000, "100")}))

	err := store.InsertBulk(ctx, []*domain.VolumeSnapshot{testSnapshot("SOL", 1000, "100")})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestVolumeSnapshotStore_GetByToken_Range(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewVolumeSnapshotStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.VolumeSnapshot{
		testSnapshot("SOL", 1000, "100"),
		testSnapshot("SOL", 2000, "200"),
		testSnapshot("SOL", 3000, "300"),
		testSnapshot("JUP", 2000, "999"),
	}))

	got, err := store.GetByToken(ctx, "SOL", 1000, 2000)
	require.NoError(t, err)
	require.Len(t, got, 2, "bounds are inclusive")
	assert.Equal(t, int64(1000), got[0].Timestamp)
	assert.Equal(t, int64(2000), got[1].Timestamp)
}
