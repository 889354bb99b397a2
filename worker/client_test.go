package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/factory"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
)

func samplePayload() factory.PayloadJSON {
	entries := []*overtime.TimeEntry{{
		ID: "e1", UserID: "u1",
		TimeInterval: &overtime.TimeInterval{Start: "2025-03-10T09:00:00Z", Duration: "PT10H"},
	}}
	return factory.EncodePayload(entries, &overtime.ReferenceData{}, nil)
}

func TestClient_Calculate(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Start(ctx, NewHandler(), zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	results, err := c.Calculate(ctx, samplePayload())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Totals.Overtime.Equal(decimal.NewFromInt(2)))
	assert.Contains(t, results[0].Days, generic.DateKey("2025-03-10"))
}

func TestClient_WorkerErrorReply(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Start(ctx, NewHandler(), zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	p := samplePayload()
	p.DateRange = &overtime.DateRange{Start: "2025-03-10", End: "2025-01-01"}
	_, err = c.Calculate(ctx, p)

	var werr *Error
	require.True(t, errors.As(err, &werr))
	assert.Contains(t, werr.Message, "invalid period")
}

func TestClient_LastRequestWins(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// GIVEN: a scripted worker that holds the first reply until the second
	// request has been sent
	c := newClient(zerolog.Nop())
	go c.dispatch()
	defer c.Close()

	h := NewHandler()
	go func() {
		first := <-c.in
		second := <-c.in
		c.out <- h.Handle(ctx, first)
		c.out <- h.Handle(ctx, second)
		for range c.in {
		}
		close(c.out)
	}()

	// WHEN: two requests overlap
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Calculate(ctx, samplePayload())
		firstErr <- err
	}()
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.pending) == 1
	}, time.Second, time.Millisecond)

	results, err := c.Calculate(ctx, samplePayload())

	// THEN: only the newer request gets a result
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.True(t, errors.Is(<-firstErr, generic.ErrSuperseded))
}

func TestClient_CalculateAfterClose(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Start(ctx, NewHandler(), zerolog.Nop())
	require.NoError(t, err)
	c.Close()

	_, err = c.Calculate(ctx, samplePayload())
	assert.True(t, errors.Is(err, generic.ErrWorkerClosed))
}

func TestMessage_JSONShape(t *testing.T) {
	data, err := json.Marshal(ErrorMessage("", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "error", "error": "null"}`, string(data))
}
