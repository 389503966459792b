package ingestion

import (
	"context"
	"sort"

	"solana-whale-watch/internal/domain"
)

// TransactionSource supplies raw transactions newer than a cursor.
//
// The cursor is an opaque string owned by the source; the empty cursor means
// "start from now". Fetch returns transactions in deterministic (slot,
// signature) order together with the advanced cursor. On error the returned
// cursor equals the input cursor, so a failed fetch never loses progress,
// and re-fetching the same cursor yields the same transactions (the
// detector's window dedupe absorbs the overlap).
type TransactionSource interface {
	Fetch(ctx context.Context, cursor string) ([]*domain.RawTransaction, string, error)
}

// sortRawTransactions orders a batch by (slot, signature) for deterministic
// processing.
func sortRawTransactions(txs []*domain.RawTransaction) {
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].Slot != txs[j].Slot {
			return txs[i].Slot < txs[j].Slot
		}
		return txs[i].Signature < txs[j].Signature
	})
}
