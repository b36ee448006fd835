package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"solana-volume-bot/internal/domain"
)

// WSConfig configures WebSocket client behavior.
type WSConfig struct {
	// HandshakeTimeout bounds the initial dial.
	HandshakeTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		WriteTimeout:     10 * time.Second,
	}
}

// WSConfirmer implements Confirmer over a signatureSubscribe WebSocket
// subscription. The server fires exactly one notification per subscription
// once the signature reaches the requested commitment, then removes it.
type WSConfirmer struct {
	endpoint string
	config   WSConfig

	conn      *websocket.Conn
	writeMu   sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// pendingSubs maps request ID to channel waiting for subscription ID
	pendingSubs   map[uint64]chan int64
	pendingSubsMu sync.Mutex

	// subs maps subscription ID to channel receiving the on-chain result
	subs   map[int64]chan error
	subsMu sync.Mutex

	// early holds notifications that arrived before the subscription ID
	// response was processed
	early map[int64]error

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWSConfirmer connects to the WebSocket endpoint and starts the reader.
func NewWSConfirmer(ctx context.Context, endpoint string, config *WSConfig) (*WSConfirmer, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &WSConfirmer{
		endpoint:    endpoint,
		config:      cfg,
		conn:        conn,
		pendingSubs: make(map[uint64]chan int64),
		subs:        make(map[int64]chan error),
		early:       make(map[int64]error),
		done:        make(chan struct{}),
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type wsMessage struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Method string          `json:"method"`
	Params *struct {
		Subscription int64 `json:"subscription"`
		Result       struct {
			Value struct {
				Err interface{} `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
	Error *rpcError `json:"error"`
}

// Confirm subscribes to the signature and waits for its single notification
// or the ceiling, whichever comes first.
func (c *WSConfirmer) Confirm(ctx context.Context, signature string, timeout time.Duration) error {
	if c.closed.Load() {
		return fmt.Errorf("%w: websocket client closed", domain.ErrConfirmation)
	}

	reqID := c.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "signatureSubscribe",
		Params: []interface{}{
			signature,
			map[string]string{"commitment": "confirmed"},
		},
	}

	confirmCh := make(chan int64, 1)
	c.pendingSubsMu.Lock()
	c.pendingSubs[reqID] = confirmCh
	c.pendingSubsMu.Unlock()
	defer func() {
		c.pendingSubsMu.Lock()
		delete(c.pendingSubs, reqID)
		c.pendingSubsMu.Unlock()
	}()

	if err := c.write(req); err != nil {
		return fmt.Errorf("%w: subscribe: %v", domain.ErrConfirmation, err)
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var subID int64
	select {
	case subID = <-confirmCh:
	case <-deadline.C:
		return fmt.Errorf("%w: no subscription confirmation for %s within %s", domain.ErrConfirmationTimeout, signature, timeout)
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return fmt.Errorf("%w: websocket client closed", domain.ErrConfirmation)
	}

	resultCh := c.registerSub(subID)
	defer c.unregisterSub(subID)

	select {
	case err := <-resultCh:
		if err != nil {
			return fmt.Errorf("%w: transaction %s rejected: %v", domain.ErrConfirmation, signature, err)
		}
		return nil
	case <-deadline.C:
		return fmt.Errorf("%w: %s not confirmed within %s", domain.ErrConfirmationTimeout, signature, timeout)
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return fmt.Errorf("%w: websocket client closed", domain.ErrConfirmation)
	}
}

// registerSub installs the result channel for a subscription ID, replaying a
// notification that raced ahead of the subscription response.
func (c *WSConfirmer) registerSub(subID int64) chan error {
	ch := make(chan error, 1)
	c.subsMu.Lock()
	if err, ok := c.early[subID]; ok {
		delete(c.early, subID)
		ch <- err
	} else {
		c.subs[subID] = ch
	}
	c.subsMu.Unlock()
	return ch
}

func (c *WSConfirmer) unregisterSub(subID int64) {
	c.subsMu.Lock()
	delete(c.subs, subID)
	delete(c.early, subID)
	c.subsMu.Unlock()
}

func (c *WSConfirmer) write(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(v)
}

// readLoop dispatches subscription responses and signature notifications.
func (c *WSConfirmer) readLoop() {
	defer c.wg.Done()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closed.Swap(true) {
				close(c.done)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch {
		case msg.Method == "signatureNotification" && msg.Params != nil:
			c.dispatch(msg.Params.Subscription, asError(msg.Params.Result.Value.Err))

		case msg.ID != 0:
			c.pendingSubsMu.Lock()
			ch, ok := c.pendingSubs[msg.ID]
			c.pendingSubsMu.Unlock()
			if !ok {
				continue
			}
			var subID int64
			if msg.Error == nil && json.Unmarshal(msg.Result, &subID) == nil {
				select {
				case ch <- subID:
				default:
				}
			}
		}
	}
}

func (c *WSConfirmer) dispatch(subID int64, err error) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if ch, ok := c.subs[subID]; ok {
		select {
		case ch <- err:
		default:
		}
		return
	}
	c.early[subID] = err
}

func asError(v interface{}) error {
	if v == nil {
		return nil
	}
	return fmt.Errorf("%v", v)
}

func (c *WSConfirmer) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
		}
	}
}

// Close closes the WebSocket connection and stops background goroutines.
func (c *WSConfirmer) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)
	err := c.conn.Close()
	c.wg.Wait()
	return err
}
