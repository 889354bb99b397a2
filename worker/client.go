package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/warp/overtime-engine/factory"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
)

// Error is an error reply from the worker.
type Error struct {
	RequestID string
	Message   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("worker error (request %s): %s", e.RequestID, e.Message)
}

// Client drives one worker goroutine. Only the most recent Calculate call
// gets its result: when an older request's reply arrives after a newer
// request was sent, the older caller receives generic.ErrSuperseded.
type Client struct {
	in     chan Message
	out    chan Message
	logger zerolog.Logger

	mu      sync.Mutex
	latest  string
	pending map[string]chan Message
	closed  bool

	// sendMu keeps Close from closing in while a request is being sent.
	sendMu sync.RWMutex

	done chan struct{}
}

func newClient(logger zerolog.Logger) *Client {
	return &Client{
		in:      make(chan Message),
		out:     make(chan Message),
		logger:  logger,
		pending: make(map[string]chan Message),
		done:    make(chan struct{}),
	}
}

// Start launches a worker goroutine running h and waits for its ready
// message. The worker stops when ctx is done or the client is closed.
func Start(ctx context.Context, h *Handler, logger zerolog.Logger) (*Client, error) {
	c := newClient(logger)
	go func() {
		if err := h.Serve(ctx, c.in, c.out); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn().Err(err).Msg("worker stopped")
		}
		close(c.out)
	}()

	select {
	case msg, ok := <-c.out:
		if !ok {
			return nil, fmt.Errorf("worker exited before ready: %w", ctx.Err())
		}
		if msg.Type != TypeReady {
			return nil, fmt.Errorf("worker sent %q before ready", msg.Type)
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	go c.dispatch()
	return c, nil
}

// dispatch routes replies to their waiting callers.
func (c *Client) dispatch() {
	defer close(c.done)
	for msg := range c.out {
		c.mu.Lock()
		ch, ok := c.pending[msg.ID]
		delete(c.pending, msg.ID)
		c.mu.Unlock()
		if !ok {
			c.logger.Debug().Str("request_id", msg.ID).Msg("reply without a waiting caller dropped")
			continue
		}
		ch <- msg
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// Calculate sends one calculate request and waits for its reply.
func (c *Client) Calculate(ctx context.Context, payload factory.PayloadJSON) ([]overtime.UserAnalysisResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	id := uuid.NewString()
	reply := make(chan Message, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, generic.ErrWorkerClosed
	}
	c.latest = id
	c.pending[id] = reply
	c.mu.Unlock()

	log := c.logger.With().Str("request_id", id).Logger()
	log.Debug().Int("entries", len(payload.Entries)).Msg("calculate sent")

	if err := c.send(ctx, Message{Type: TypeCalculate, ID: id, Payload: raw}); err != nil {
		c.forget(id)
		return nil, err
	}

	var msg Message
	select {
	case m, ok := <-reply:
		if !ok {
			return nil, generic.ErrWorkerClosed
		}
		msg = m
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	}

	if !c.isLatest(id) {
		log.Debug().Msg("result superseded by a newer request")
		return nil, generic.ErrSuperseded
	}

	switch msg.Type {
	case TypeResult:
		var wire []factory.UserResultJSON
		if err := json.Unmarshal(msg.Payload, &wire); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		return factory.DecodeResults(wire), nil
	case TypeError:
		return nil, &Error{RequestID: id, Message: msg.Error}
	default:
		return nil, fmt.Errorf("unexpected reply type %q", msg.Type)
	}
}

func (c *Client) send(ctx context.Context, msg Message) error {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()
	if c.isClosed() {
		return generic.ErrWorkerClosed
	}
	select {
	case c.in <- msg:
		return nil
	case <-c.done:
		return generic.ErrWorkerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) isLatest(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest == id
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Close stops the worker and waits for in-flight replies to drain.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.sendMu.Lock()
	close(c.in)
	c.sendMu.Unlock()
	<-c.done
}
