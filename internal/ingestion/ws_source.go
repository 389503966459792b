package ingestion

import (
	"context"
	"log"
	"sync"
	"time"

	"solana-whale-watch/internal/domain"
	"solana-whale-watch/internal/solana"
)

const (
	wsFetchRetries   = 3
	wsBaseRetryDelay = 500 * time.Millisecond
)

// WSSource buffers transactions arriving over a logs subscription so the
// polling loop can drain them with the same Fetch contract as the RPC
// source. Notifications carry only logs; the full transaction is loaded over
// RPC for account keys and instructions.
type WSSource struct {
	rpc solana.RPCClient

	mu     sync.Mutex
	buffer []*domain.RawTransaction
	head   string // signature of the newest buffered transaction

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewWSSource starts draining the notification channel. The channel usually
// comes from solana.LogsStream. Stop with Close; the source also stops when
// the channel closes.
func NewWSSource(notifications <-chan solana.LogNotification, rpc solana.RPCClient) *WSSource {
	s := &WSSource{
		rpc:  rpc,
		done: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.pump(notifications)

	return s
}

// Fetch drains the buffered transactions. The WS stream itself is the
// ordering authority, so the cursor only reports the newest signature seen;
// passing it back has no filtering effect.
func (s *WSSource) Fetch(_ context.Context, cursor string) ([]*domain.RawTransaction, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.buffer) == 0 {
		return nil, cursor, nil
	}

	batch := s.buffer
	s.buffer = nil
	sortRawTransactions(batch)
	return batch, s.head, nil
}

// Close stops the pump goroutine. Safe to call more than once.
func (s *WSSource) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	s.wg.Wait()
}

func (s *WSSource) pump(notifications <-chan solana.LogNotification) {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case notif, ok := <-notifications:
			if !ok {
				return
			}
			if notif.Err != nil {
				continue // failed on chain
			}
			s.ingest(notif)
		}
	}
}

// ingest loads the full transaction and appends it to the buffer. Load
// failures drop the single notification; the next RPC poll can still pick
// the transaction up.
func (s *WSSource) ingest(notif solana.LogNotification) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx, err := s.fetchWithRetry(ctx, notif.Signature)
	if err != nil {
		log.Printf("[ws-source] get transaction %s: %v, dropping notification", notif.Signature, err)
		return
	}

	raw := &domain.RawTransaction{
		Signature:   notif.Signature,
		Slot:        notif.Slot,
		LogMessages: notif.Logs,
	}
	if tx != nil {
		raw.Slot = tx.Slot
		raw.Timestamp = tx.BlockTime * 1000
		if tx.Meta != nil {
			if tx.Meta.Err != nil {
				return
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
	}
	if raw.Timestamp == 0 {
		raw.Timestamp = time.Now().UnixMilli()
	}

	s.mu.Lock()
	s.buffer = append(s.buffer, raw)
	s.head = raw.Signature
	s.mu.Unlock()
}

// fetchWithRetry retries transient RPC failures with exponential backoff.
// A fresh signature often needs a moment before the node serves it.
func (s *WSSource) fetchWithRetry(ctx context.Context, signature string) (*solana.Transaction, error) {
	var lastErr error
	for attempt := 0; attempt < wsFetchRetries; attempt++ {
		tx, err := s.rpc.GetTransaction(ctx, signature)
		if err == nil && tx != nil {
			return tx, nil
		}
		if err == nil {
			lastErr = nil // not found yet, retry
		} else {
			lastErr = err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		select {
		case <-time.After(wsBaseRetryDelay * time.Duration(1<<attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}
