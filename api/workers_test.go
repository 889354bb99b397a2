package api

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/factory"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
	"github.com/warp/overtime-engine/worker"
)

func newTestPool(t *testing.T) *WorkerPool {
	t.Helper()
	p := NewWorkerPool(worker.NewHandler(), zerolog.Nop(), NewMetrics())
	t.Cleanup(p.Stop)
	return p
}

func TestWorkerPool_OneClientPerWorkspace(t *testing.T) {
	p := newTestPool(t)

	a1, err := p.Get("a")
	require.NoError(t, err)
	a2, err := p.Get("a")
	require.NoError(t, err)
	b, err := p.Get("b")
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
	assert.Equal(t, 2, p.Len())

	p.Release("a")
	assert.Equal(t, 1, p.Len())
}

func TestWorkerPool_EvictIdle(t *testing.T) {
	p := newTestPool(t)
	p.IdleTimeout = time.Minute

	old, err := p.Get("old")
	require.NoError(t, err)
	_, err = p.Get("fresh")
	require.NoError(t, err)

	p.mu.Lock()
	p.workers["old"].lastUsed = time.Now().Add(-2 * time.Minute)
	p.mu.Unlock()

	assert.Equal(t, 1, p.evictIdle(time.Now()))
	assert.Equal(t, 1, p.Len())

	// The evicted client refuses work; the pool hands out a new one.
	payload := factory.EncodePayload(nil, &overtime.ReferenceData{}, nil)
	_, err = old.Calculate(context.Background(), payload)
	assert.ErrorIs(t, err, generic.ErrWorkerClosed)

	replacement, err := p.Get("old")
	require.NoError(t, err)
	assert.NotSame(t, old, replacement)
	results, err := replacement.Calculate(context.Background(), payload)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestWorkerPool_Stop(t *testing.T) {
	p := NewWorkerPool(worker.NewHandler(), zerolog.Nop(), NewMetrics())
	p.CheckInterval = 10 * time.Millisecond
	p.Start()

	_, err := p.Get("a")
	require.NoError(t, err)

	p.Stop()
	p.Stop()
	assert.Equal(t, 0, p.Len())

	_, err = p.Get("a")
	assert.ErrorIs(t, err, generic.ErrWorkerClosed)
}
