package ingestion

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"solana-whale-watch/internal/domain"
	"solana-whale-watch/internal/solana"
)

// DefaultFetchLimit bounds one getSignaturesForAddress page per program.
const DefaultFetchLimit = 1000

// RPCSource fetches transactions that touch the monitored programs via
// Solana RPC polling. The cursor records, per program, the newest signature
// already delivered; each poll asks for signatures up to that point.
type RPCSource struct {
	rpc      solana.RPCClient
	programs []string
	limit    int
}

// RPCSourceOption configures an RPCSource.
type RPCSourceOption func(*RPCSource)

// WithFetchLimit bounds the signature page size per program.
func WithFetchLimit(n int) RPCSourceOption {
	return func(s *RPCSource) {
		s.limit = n
	}
}

// NewRPCSource creates an RPC-backed transaction source for the given
// program addresses.
func NewRPCSource(rpc solana.RPCClient, programs []string, opts ...RPCSourceOption) *RPCSource {
	s := &RPCSource{
		rpc:      rpc,
		programs: programs,
		limit:    DefaultFetchLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch returns all transactions newer than the cursor across the monitored
// programs. Any RPC failure aborts the batch and leaves the cursor untouched.
func (s *RPCSource) Fetch(ctx context.Context, cursor string) ([]*domain.RawTransaction, string, error) {
	heads := parseCursor(cursor)

	var batch []*domain.RawTransaction
	next := make(map[string]string, len(s.programs))
	for program, sig := range heads {
		next[program] = sig
	}

	for _, program := range s.programs {
		sigs, err := s.rpc.GetSignaturesForAddress(ctx, program, &solana.SignaturesOpts{
			Until: heads[program],
			Limit: s.limit,
		})
		if err != nil {
			return nil, cursor, fmt.Errorf("get signatures for %s: %w", program, err)
		}
		if len(sigs) == 0 {
			continue
		}

		// Newest first from the endpoint; the head advances to the newest.
		next[program] = sigs[0].Signature

		for i := len(sigs) - 1; i >= 0; i-- {
			if sigs[i].Err != nil {
				continue
			}
			raw, err := s.fetchTransaction(ctx, sigs[i])
			if err != nil {
				return nil, cursor, err
			}
			if raw != nil {
				batch = append(batch, raw)
			}
		}
	}

	sortRawTransactions(batch)
	return batch, formatCursor(next), nil
}

// fetchTransaction loads one full transaction and converts it to the raw
// domain form. A transaction the node no longer has is skipped, not failed.
func (s *RPCSource) fetchTransaction(ctx context.Context, sig solana.SignatureInfo) (*domain.RawTransaction, error) {
	tx, err := s.rpc.GetTransaction(ctx, sig.Signature)
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", sig.Signature, err)
	}
	if tx == nil {
		return nil, nil
	}

	raw := &domain.RawTransaction{
		Signature: tx.Signature,
		Slot:      tx.Slot,
		Timestamp: tx.BlockTime * 1000,
	}
	if raw.Timestamp == 0 && sig.BlockTime != nil {
		raw.Timestamp = *sig.BlockTime * 1000
	}
	if raw.Timestamp == 0 {
		if bt, err := s.rpc.GetBlockTime(ctx, tx.Slot); err == nil && bt != nil {
			raw.Timestamp = *bt * 1000
		}
	}

	if tx.Meta != nil {
		if tx.Meta.Err != nil {
			// Failed on chain, nothing traded.
			return nil, nil
		}
		raw.LogMessages = tx.Meta.LogMessages
	}
	if tx.Message != nil {
		raw.AccountKeys = tx.Message.AccountKeys
		for _, inst := range tx.Message.Instructions {
			raw.Instructions = append(raw.Instructions, domain.RawInstruction{
				ProgramID: inst.ProgramID,
				Accounts:  inst.Accounts,
				Data:      inst.Data,
			})
		}
	}

	return raw, nil
}

// Cursor format: "program=signature" pairs joined with ",".

func parseCursor(cursor string) map[string]string {
	heads := make(map[string]string)
	if cursor == "" {
		return heads
	}
	for _, part := range strings.Split(cursor, ",") {
		if program, sig, ok := strings.Cut(part, "="); ok && program != "" && sig != "" {
			heads[program] = sig
		}
	}
	return heads
}

func formatCursor(heads map[string]string) string {
	if len(heads) == 0 {
		return ""
	}
	parts := make([]string, 0, len(heads))
	for program, sig := range heads {
		parts = append(parts, program+"="+sig)
	}
	// Deterministic cursor text for storage comparisons.
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
