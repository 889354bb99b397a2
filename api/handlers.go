/*
handlers.go - HTTP API handlers for the overtime analysis service

PURPOSE:
  Exposes the overtime engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engine, the worker transport and
  the workspace store.

ENDPOINTS:
  Workspaces:
    GET    /api/workspaces/{id}/reference  Stored reference data (store shape)
    PUT    /api/workspaces/{id}/reference  Replace reference data
    GET    /api/workspaces/{id}/entries    Stored entries
    POST   /api/workspaces/{id}/entries    Upsert entries by id
    POST   /api/workspaces/{id}/analyze    Analyze stored data, record a run
    GET    /api/workspaces/{id}/runs       Run history (?limit=N)
    DELETE /api/workspaces/{id}            Drop workspace, entries and runs

  Stateless:
    POST   /api/analyze                    Analyze a full payload
    POST   /api/messages                   Raw worker protocol message

  Scenarios:
    GET    /api/scenarios                  List demo scenarios
    POST   /api/scenarios/load             Load a demo scenario

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: workspace persistence
  - engine: direct analysis for stateless requests
  - protocol: worker message handler for /api/messages
  - workers: one last-request-wins worker client per workspace

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, analysis rejected the input
  - 404: Workspace or scenario not found
  - 409: Analysis superseded by a newer request for the same workspace
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/warp/overtime-engine/factory"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
	"github.com/warp/overtime-engine/store"
	"github.com/warp/overtime-engine/worker"
)

const maxBodyBytes = 16 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store store.Store

	engine   *overtime.Engine
	protocol *worker.Handler
	workers  *WorkerPool
	metrics  *Metrics
	logger   zerolog.Logger
	defaults overtime.CalcParams

	// Track currently loaded scenario
	mu              sync.RWMutex
	currentScenario string
}

type Option func(*Handler)

func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithDefaults sets the calcParams applied where a workspace or payload
// leaves a field unset.
func WithDefaults(p overtime.CalcParams) Option {
	return func(h *Handler) { h.defaults = p }
}

// NewHandler creates a new handler with the given store.
func NewHandler(st store.Store, opts ...Option) *Handler {
	h := &Handler{
		Store:    st,
		metrics:  NewMetrics(),
		logger:   zerolog.Nop(),
		defaults: overtime.DefaultCalcParams(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.engine = overtime.New(overtime.WithLogger(h.logger))
	h.protocol = worker.NewHandler(worker.WithDefaults(h.defaults), worker.WithLogger(h.logger))
	h.workers = NewWorkerPool(h.protocol, h.logger, h.metrics)
	return h
}

// Start begins background work (idle worker eviction).
func (h *Handler) Start() {
	h.workers.Start()
}

// Close stops every workspace worker.
func (h *Handler) Close() {
	h.workers.Stop()
}

// =============================================================================
// WORKSPACE HANDLERS
// =============================================================================

// GetReference returns a workspace's reference data in the store shape.
func (h *Handler) GetReference(w http.ResponseWriter, r *http.Request) {
	ref, err := h.Store.LoadReference(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStatusError(w, "Failed to load reference data", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.EncodeStore(ref))
}

// PutReference replaces a workspace's reference data.
func (h *Handler) PutReference(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var wire factory.StoreJSON
	if err := decodeBody(w, r, &wire); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid reference data", err)
		return
	}

	// Unset calcParams stay unset so later default changes still apply.
	ref := wire.Reference(overtime.CalcParams{})
	if err := h.Store.SaveReference(r.Context(), id, ref); err != nil {
		writeStatusError(w, "Failed to save reference data", err)
		return
	}

	zerolog.Ctx(r.Context()).Info().
		Str("workspace_id", id).
		Int("users", len(ref.Users)).
		Int("overrides", len(ref.Overrides)).
		Msg("reference data saved")
	writeJSON(w, http.StatusOK, factory.EncodeStore(ref))
}

// ListEntries returns a workspace's entries in first-seen order.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Store.LoadEntries(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStatusError(w, "Failed to load entries", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// UpsertEntries accepts {"entries": [...]} or a bare array.
func (h *Handler) UpsertEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var req UpsertEntriesRequest
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &req.Entries)
	} else {
		err = json.Unmarshal(body, &req)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	stored, err := h.Store.UpsertEntries(ctx, id, req.Entries)
	if err != nil {
		writeStatusError(w, "Failed to store entries", err)
		return
	}
	all, err := h.Store.LoadEntries(ctx, id)
	if err != nil {
		writeStatusError(w, "Failed to load entries", err)
		return
	}

	zerolog.Ctx(ctx).Info().
		Str("workspace_id", id).
		Int("received", len(req.Entries)).
		Int("stored", stored).
		Msg("entries upserted")
	writeJSON(w, http.StatusOK, UpsertEntriesResponse{WorkspaceID: id, Stored: stored, Total: len(all)})
}

// AnalyzeWorkspace analyzes the stored entries through the workspace's
// worker. A request overtaken by a newer one for the same workspace gets
// 409. Every outcome except internal failures is recorded as a run.
func (h *Handler) AnalyzeWorkspace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	log := zerolog.Ctx(ctx).With().Str("workspace_id", id).Logger()

	var req AnalyzeRequest
	if err := decodeOptionalBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ref, err := h.Store.LoadReference(ctx, id)
	if err != nil {
		writeStatusError(w, "Failed to load reference data", err)
		return
	}
	entries, err := h.Store.LoadEntries(ctx, id)
	if err != nil {
		writeStatusError(w, "Failed to load entries", err)
		return
	}

	start := time.Now()
	results, err := h.calculate(ctx, id, factory.EncodePayload(entries, ref, req.DateRange))
	elapsed := time.Since(start)

	var werr *worker.Error
	switch {
	case err == nil:
		run := store.NewRun(id, req.DateRange, len(entries), results)
		run.Duration = elapsed
		h.saveRun(ctx, run)
		h.metrics.observe(sourceWorkspace, outcomeOK, elapsed, len(entries), results)
		log.Info().
			Str("run_id", run.ID).
			Int("users", run.Users).
			Str("overtime_hours", run.OvertimeHours.String()).
			Dur("elapsed", elapsed).
			Msg("workspace analyzed")
		writeJSON(w, http.StatusOK, AnalysisResponse{RunID: run.ID, Results: factory.EncodeResults(results)})

	case generic.IsConflict(err):
		run := store.FailedRun(id, req.DateRange, len(entries), store.RunSuperseded, err)
		run.Duration = elapsed
		h.saveRun(ctx, run)
		h.metrics.observe(sourceWorkspace, outcomeSuperseded, elapsed, len(entries), nil)
		log.Debug().Msg("analysis superseded")
		writeError(w, http.StatusConflict, "Analysis superseded by a newer request", err)

	case errors.As(err, &werr):
		run := store.FailedRun(id, req.DateRange, len(entries), store.RunFailed, errors.New(werr.Message))
		run.Duration = elapsed
		h.saveRun(ctx, run)
		h.metrics.observe(sourceWorkspace, outcomeError, elapsed, len(entries), nil)
		writeError(w, http.StatusBadRequest, "Analysis failed", errors.New(werr.Message))

	default:
		h.metrics.observe(sourceWorkspace, outcomeError, elapsed, len(entries), nil)
		log.Error().Err(err).Msg("workspace analysis failed")
		writeStatusError(w, "Analysis failed", err)
	}
}

// calculate runs one request on the workspace's worker. A worker evicted
// between Get and Calculate is replaced once.
func (h *Handler) calculate(ctx context.Context, workspaceID string, payload factory.PayloadJSON) ([]overtime.UserAnalysisResult, error) {
	for attempt := 0; ; attempt++ {
		client, err := h.workers.Get(workspaceID)
		if err != nil {
			return nil, err
		}
		results, err := client.Calculate(ctx, payload)
		if errors.Is(err, generic.ErrWorkerClosed) && attempt == 0 {
			continue
		}
		return results, err
	}
}

func (h *Handler) saveRun(ctx context.Context, run store.Run) {
	if err := h.Store.SaveRun(ctx, run); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("run_id", run.ID).Msg("failed to record run")
	}
}

// ListRuns returns run history, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	runs, err := h.Store.ListRuns(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeStatusError(w, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, toRunDTO(run))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// DeleteWorkspace removes a workspace and stops its worker.
func (h *Handler) DeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteWorkspace(r.Context(), id); err != nil {
		writeStatusError(w, "Failed to delete workspace", err)
		return
	}
	h.workers.Release(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "workspace_id": id})
}

// =============================================================================
// STATELESS HANDLERS
// =============================================================================

// Analyze runs the engine over a full payload ({entries, dateRange, store})
// and returns results with days as [dateKey, record] pairs.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	payload, err := factory.ParsePayload(body, h.defaults)
	if err != nil {
		writeStatusError(w, "Invalid payload", err)
		return
	}

	start := time.Now()
	results, err := h.engine.Analyze(payload.Entries, payload.Reference, payload.DateRange)
	elapsed := time.Since(start)
	if err != nil {
		h.metrics.observe(sourceStateless, outcomeError, elapsed, len(payload.Entries), nil)
		writeStatusError(w, "Analysis failed", err)
		return
	}
	h.metrics.observe(sourceStateless, outcomeOK, elapsed, len(payload.Entries), results)

	writeJSON(w, http.StatusOK, factory.EncodeResults(results))
}

// Message answers one worker protocol message. Protocol-level errors are
// normal replies, so this always answers 200 once the body is a message.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var msg worker.Message
	if err := decodeBody(w, r, &msg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid message", err)
		return
	}

	start := time.Now()
	reply := h.protocol.Handle(r.Context(), msg)
	if msg.Type == worker.TypeCalculate {
		outcome := outcomeOK
		if reply.Type == worker.TypeError {
			outcome = outcomeError
		}
		h.metrics.observe(sourceMessage, outcome, time.Since(start), 0, nil)
	}

	writeJSON(w, http.StatusOK, reply)
}

// =============================================================================
// HELPERS
// =============================================================================

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// decodeOptionalBody treats an empty body as "no fields".
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeStatusError picks the status from the error's category.
func writeStatusError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsClientError(err):
		return http.StatusBadRequest
	case generic.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
