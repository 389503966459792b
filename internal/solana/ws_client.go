package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// LogsStreamConfig configures the log stream behavior.
type LogsStreamConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is the maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration
	// Buffer is the notification channel capacity.
	Buffer int
}

// DefaultLogsStreamConfig returns the default stream configuration.
func DefaultLogsStreamConfig() LogsStreamConfig {
	return LogsStreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		Buffer:            10000,
	}
}

// LogsStream is a single logsSubscribe subscription over gorilla/websocket.
// It reconnects with exponential backoff and resubscribes with the same
// filter; notifications are never dropped while the buffer has room, and the
// sender blocks rather than drop once it is full.
type LogsStream struct {
	endpoint string
	filter   LogsFilter
	config   LogsStreamConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64
	subID     atomic.Int64

	notifications chan LogNotification
	done          chan struct{}
	wg            sync.WaitGroup
}

// OpenLogsStream connects and subscribes to logs matching the filter.
func OpenLogsStream(ctx context.Context, endpoint string, filter LogsFilter, config *LogsStreamConfig) (*LogsStream, error) {
	cfg := DefaultLogsStreamConfig()
	if config != nil {
		cfg = *config
	}

	s := &LogsStream{
		endpoint:      endpoint,
		filter:        filter,
		config:        cfg,
		notifications: make(chan LogNotification, cfg.Buffer),
		done:          make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	if err := s.subscribe(ctx); err != nil {
		s.closeConn()
		return nil, err
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.pingLoop()

	return s, nil
}

// Notifications returns the stream channel. It is closed by Close.
func (s *LogsStream) Notifications() <-chan LogNotification {
	return s.notifications
}

// Close shuts the stream down. Safe to call more than once.
func (s *LogsStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	close(s.done)
	s.closeConn()
	s.wg.Wait()
	close(s.notifications)
	return nil
}

func (s *LogsStream) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	return nil
}

func (s *LogsStream) closeConn() {
	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()
}

// subscribe sends the logsSubscribe request and waits for its confirmation.
// The confirmation is read inline because the read loop is not running yet
// (initial subscribe) or is the caller (resubscribe).
func (s *LogsStream) subscribe(ctx context.Context) error {
	reqID := s.requestID.Add(1)

	mentionsFilter := make(map[string]interface{})
	if len(s.filter.Mentions) > 0 {
		mentionsFilter["mentions"] = s.filter.Mentions
	} else {
		mentionsFilter["all"] = nil
	}

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "logsSubscribe",
		Params: []interface{}{
			mentionsFilter,
			map[string]string{"commitment": "confirmed"},
		},
	}

	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}

	deadline := time.Now().Add(30 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	// Notifications that arrive before the confirmation are dispatched so a
	// resubscribe does not lose messages from the prior subscription window.
	for {
		conn.SetReadDeadline(deadline)
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read subscribe confirmation: %w", err)
		}

		var resp wsSubscribeResponse
		if err := json.Unmarshal(message, &resp); err == nil && resp.ID == reqID && resp.Result > 0 {
			s.subID.Store(resp.Result)
			return nil
		}
		s.dispatch(message)
	}
}

// readLoop reads messages and dispatches notifications, reconnecting with
// exponential backoff on connection errors.
func (s *LogsStream) readLoop() {
	defer s.wg.Done()

	delay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			if !s.reconnect(delay) {
				return
			}
			delay = delay * 2
			if delay > s.config.MaxReconnectDelay {
				delay = s.config.MaxReconnectDelay
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}
			log.Printf("[ws] read failed: %v, reconnecting", err)
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.Close()
				s.conn = nil
			}
			s.connMu.Unlock()
			continue
		}

		delay = s.config.ReconnectDelay
		s.dispatch(message)
	}
}

// reconnect waits out the backoff delay, redials and resubscribes. Returns
// false when the stream is shutting down.
func (s *LogsStream) reconnect(delay time.Duration) bool {
	select {
	case <-s.done:
		return false
	case <-time.After(delay):
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		log.Printf("[ws] reconnect failed: %v", err)
		return true
	}
	if err := s.subscribe(ctx); err != nil {
		log.Printf("[ws] resubscribe failed: %v", err)
		s.closeConn()
		return true
	}

	log.Printf("[ws] reconnected and resubscribed")
	return true
}

// dispatch parses one message and forwards log notifications.
func (s *LogsStream) dispatch(message []byte) {
	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err != nil || notif.Method != "logsNotification" {
		return
	}
	if notif.Params == nil {
		return
	}

	value := notif.Params.Result.Value
	logNotif := LogNotification{
		Signature: value.Signature,
		Logs:      value.Logs,
		Err:       value.Err,
	}
	if notif.Params.Result.Context != nil {
		logNotif.Slot = notif.Params.Result.Context.Slot
	}

	// Block rather than drop once the buffer is full.
	select {
	case s.notifications <- logNotif:
	case <-s.done:
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (s *LogsStream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				// A failed ping surfaces as a read error; the read loop
				// handles the reconnect.
				s.conn.WriteMessage(websocket.PingMessage, nil)
			}
			s.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"` // subscription ID
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}
