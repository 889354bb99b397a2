/*
workers.go - Per-workspace worker pool with idle eviction

PURPOSE:
  Each workspace analyzes through its own worker client so that
  last-request-wins applies per workspace: a second analyze call for the
  same workspace supersedes the first, while other workspaces are
  unaffected.

DESIGN:
  - Clients start lazily on first use
  - A background goroutine checks on a fixed interval and closes clients
    idle for longer than IdleTimeout
  - Stop closes every client

CONFIGURATION:
  - CheckInterval: How often to look for idle workers (default: 1 minute)
  - IdleTimeout:   How long a worker may sit unused (default: 10 minutes)

USAGE:
  pool := NewWorkerPool(worker.NewHandler(), logger, metrics)
  pool.Start()
  defer pool.Stop()
  client, err := pool.Get("acme")

SEE ALSO:
  - worker/client.go: last-request-wins client
  - handlers.go: AnalyzeWorkspace
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/worker"
)

type pooledWorker struct {
	client   *worker.Client
	lastUsed time.Time
}

// WorkerPool keeps one worker client per workspace.
type WorkerPool struct {
	CheckInterval time.Duration
	IdleTimeout   time.Duration

	handler *worker.Handler
	logger  zerolog.Logger
	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	workers map[string]*pooledWorker
	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	stopped bool
}

// NewWorkerPool creates a pool. Call Start to enable idle eviction.
func NewWorkerPool(h *worker.Handler, logger zerolog.Logger, metrics *Metrics) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		CheckInterval: time.Minute,
		IdleTimeout:   10 * time.Minute,
		handler:       h,
		logger:        logger.With().Str("component", "worker_pool").Logger(),
		metrics:       metrics,
		ctx:           ctx,
		cancel:        cancel,
		workers:       make(map[string]*pooledWorker),
		stop:          make(chan struct{}),
	}
}

// Start begins idle eviction.
func (p *WorkerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ticker != nil || p.stopped {
		return
	}
	p.ticker = time.NewTicker(p.CheckInterval)
	p.wg.Add(1)
	go p.run()

	p.logger.Info().Dur("check_interval", p.CheckInterval).Dur("idle_timeout", p.IdleTimeout).Msg("worker pool started")
}

// Stop closes every worker. The pool cannot be used afterwards.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	if p.ticker != nil {
		p.ticker.Stop()
		close(p.stop)
	}
	workers := p.workers
	p.workers = make(map[string]*pooledWorker)
	p.mu.Unlock()

	p.wg.Wait()
	for _, w := range workers {
		w.client.Close()
	}
	p.cancel()
	p.metrics.workers.Set(0)
	p.logger.Info().Int("closed", len(workers)).Msg("worker pool stopped")
}

// Get returns the workspace's client, starting one if needed.
func (p *WorkerPool) Get(workspaceID string) (*worker.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil, generic.ErrWorkerClosed
	}
	if w, ok := p.workers[workspaceID]; ok {
		w.lastUsed = time.Now()
		return w.client, nil
	}

	client, err := worker.Start(p.ctx, p.handler, p.logger.With().Str("workspace_id", workspaceID).Logger())
	if err != nil {
		return nil, err
	}
	p.workers[workspaceID] = &pooledWorker{client: client, lastUsed: time.Now()}
	p.metrics.workers.Set(float64(len(p.workers)))
	p.logger.Debug().Str("workspace_id", workspaceID).Msg("worker started")
	return client, nil
}

// Release closes a workspace's worker, if any.
func (p *WorkerPool) Release(workspaceID string) {
	p.mu.Lock()
	w, ok := p.workers[workspaceID]
	delete(p.workers, workspaceID)
	p.metrics.workers.Set(float64(len(p.workers)))
	p.mu.Unlock()

	if ok {
		w.client.Close()
	}
}

// Len reports how many workers are running.
func (p *WorkerPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

func (p *WorkerPool) run() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ticker.C:
			p.evictIdle(time.Now())
		case <-p.stop:
			return
		}
	}
}

// evictIdle closes workers unused since before now - IdleTimeout.
func (p *WorkerPool) evictIdle(now time.Time) int {
	p.mu.Lock()
	var idle []*worker.Client
	for id, w := range p.workers {
		if now.Sub(w.lastUsed) > p.IdleTimeout {
			idle = append(idle, w.client)
			delete(p.workers, id)
			p.logger.Debug().Str("workspace_id", id).Msg("idle worker evicted")
		}
	}
	p.metrics.workers.Set(float64(len(p.workers)))
	p.mu.Unlock()

	// A caller that got the client just before eviction sees ErrWorkerClosed.
	for _, c := range idle {
		c.Close()
	}
	return len(idle)
}
