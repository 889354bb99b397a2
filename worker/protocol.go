/*
Package worker runs the engine behind a message-passing boundary.

PURPOSE:
  Analyses of large entry sets should not block the caller. The engine is
  synchronous, so it is driven from a goroutine that speaks a tiny message
  protocol over channels. The same protocol is exposed over HTTP
  (POST /api/messages) so any client can drive it.

PROTOCOL:
  worker -> caller  {"type": "ready"}                        once, on start
  caller -> worker  {"type": "calculate", "id": "...", "payload": {...}}
  worker -> caller  {"type": "result", "id": "...", "payload": [UserResult...]}
  worker -> caller  {"type": "error", "id": "...", "error": "message"}

  An unknown or missing type answers
  {"type": "error", "error": "Unknown message type: <type>"}.
  Anything that goes wrong while calculating, including a panic, is turned
  into a string and answered as an error message. The worker keeps serving.

  Payload and result shapes are defined by the factory package: reference
  maps travel as [key, value] pairs and each result's days do too.

SEE ALSO:
  - client.go: last-request-wins caller
  - factory/store.go: payload codec
*/
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/warp/overtime-engine/factory"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
)

// MessageType discriminates protocol messages.
type MessageType string

const (
	TypeReady     MessageType = "ready"
	TypeCalculate MessageType = "calculate"
	TypeResult    MessageType = "result"
	TypeError     MessageType = "error"
)

// Message is the protocol envelope.
type Message struct {
	Type    MessageType     `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ErrorMessage builds an error reply for id.
func ErrorMessage(id string, v any) Message {
	return Message{Type: TypeError, ID: id, Error: Stringify(v)}
}

// Stringify turns anything raised during a calculation into a message:
// an error's text, a string as-is, nil as "null", anything else formatted.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case error:
		return x.Error()
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// =============================================================================
// HANDLER
// =============================================================================

// Handler answers one message at a time. It holds no per-request state.
type Handler struct {
	engine   *overtime.Engine
	defaults overtime.CalcParams
	logger   zerolog.Logger
}

type Option func(*Handler)

// WithDefaults sets the calcParams used for fields a payload leaves unset.
func WithDefaults(p overtime.CalcParams) Option {
	return func(h *Handler) { h.defaults = p }
}

func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

func NewHandler(opts ...Option) *Handler {
	h := &Handler{defaults: overtime.DefaultCalcParams(), logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(h)
	}
	h.engine = overtime.New(overtime.WithLogger(h.logger))
	return h
}

// Handle answers msg. It never panics.
func (h *Handler) Handle(ctx context.Context, msg Message) (reply Message) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().Str("request_id", msg.ID).Interface("panic", r).Msg("calculation panicked")
			reply = ErrorMessage(msg.ID, r)
		}
	}()

	switch msg.Type {
	case TypeCalculate:
		payload, err := h.calculate(ctx, msg.Payload)
		if err != nil {
			return ErrorMessage(msg.ID, err)
		}
		return Message{Type: TypeResult, ID: msg.ID, Payload: payload}
	default:
		return ErrorMessage(msg.ID, &generic.UnknownMessageError{Type: string(msg.Type)})
	}
}

func (h *Handler) calculate(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("calculate message has no payload")
	}
	payload, err := factory.ParsePayload(raw, h.defaults)
	if err != nil {
		return nil, err
	}
	results, err := h.engine.Analyze(payload.Entries, payload.Reference, payload.DateRange)
	if err != nil {
		return nil, err
	}
	return json.Marshal(factory.EncodeResults(results))
}

// =============================================================================
// SERVE LOOP
// =============================================================================

// Serve posts ready, then answers messages from in until in is closed or
// ctx is done. Messages are handled in arrival order.
func (h *Handler) Serve(ctx context.Context, in <-chan Message, out chan<- Message) error {
	if !send(ctx, out, Message{Type: TypeReady}) {
		return ctx.Err()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-in:
			if !ok {
				return nil
			}
			h.logger.Debug().Str("request_id", msg.ID).Str("type", string(msg.Type)).Msg("worker message")
			if !send(ctx, out, h.Handle(ctx, msg)) {
				return ctx.Err()
			}
		}
	}
}

func send(ctx context.Context, out chan<- Message, msg Message) bool {
	select {
	case out <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}
