package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/canvasai/internal/layout"
	"github.com/starford/canvasai/internal/pipeline"
	"github.com/starford/canvasai/internal/telemetry"
	"github.com/starford/canvasai/internal/templates"
	"github.com/starford/canvasai/internal/tracestore"
)

// CommandSubmitter runs a command through the per-user queue.
type CommandSubmitter interface {
	Submit(ctx context.Context, cmd pipeline.Command, idempotencyKey string) (pipeline.Result, error)
}

// TemplateLister lists registered templates.
type TemplateLister interface {
	List() []templates.Info
}

// TraceReader reads stored command traces.
type TraceReader interface {
	List(ctx context.Context, p tracestore.ListParams) ([]telemetry.TraceRecord, error)
	Get(ctx context.Context, id string) (telemetry.TraceRecord, error)
}

// Handler holds API route handlers.
type Handler struct {
	commands  CommandSubmitter
	templates TemplateLister
	traces    TraceReader
}

// NewHandler creates a new Handler. traces may be nil when no trace store
// is configured.
func NewHandler(commands CommandSubmitter, tmpl TemplateLister, traces TraceReader) *Handler {
	return &Handler{commands: commands, templates: tmpl, traces: traces}
}

// RunCommand handles POST /api/boards/{boardID}/commands.
//
//	@Summary		Run a natural-language command against a board
//	@Tags			commands
//	@Accept			json
//	@Produce		json
//	@Param			boardID			path		string			true	"Board id"
//	@Param			Idempotency-Key	header		string			false	"Replays the stored result of an earlier request"
//	@Param			body			body		CommandRequest	true	"Command and board snapshot"
//	@Success		200				{object}	CommandResult
//	@Failure		400				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{boardID}/commands [post]
func (h *Handler) RunCommand(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	if err := validation.Validate(boardID, validation.Required, validation.Length(1, MaxIDLength)); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("boardID: "+err.Error()))
		return
	}
	key := r.Header.Get("Idempotency-Key")
	if err := validation.Validate(key, validation.Length(0, MaxIdempotencyKey)); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Idempotency-Key: "+err.Error()))
		return
	}

	var req CommandRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	res, err := h.commands.Submit(r.Context(), req.PipelineCommand(boardID), key)
	if err != nil {
		writeError(w, "run command", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Arrange handles POST /api/layout/{algorithm}.
//
//	@Summary		Arrange objects with a layout algorithm
//	@Tags			layout
//	@Accept			json
//	@Produce		json
//	@Param			algorithm	path		string			true	"Algorithm"	Enums(hierarchical, grid, stack, radial)
//	@Param			body		body		LayoutRequest	true	"Objects and options"
//	@Success		200			{object}	LayoutResult
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/layout/{algorithm} [post]
func (h *Handler) Arrange(w http.ResponseWriter, r *http.Request) {
	alg := layout.Algorithm(chi.URLParam(r, "algorithm"))
	if err := validation.Validate(alg, validation.In(layout.AlgorithmHierarchical, layout.AlgorithmGrid, layout.AlgorithmStack, layout.AlgorithmRadial)); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("algorithm: "+err.Error()))
		return
	}

	var req LayoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	res, err := layout.Arrange(alg, req.Objects, req.Options)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SuggestPorts handles POST /api/ports.
//
//	@Summary		Suggest connector sides for two objects
//	@Tags			layout
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PortsRequest	true	"Endpoints"
//	@Success		200		{object}	PortsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ports [post]
func (h *Handler) SuggestPorts(w http.ResponseWriter, r *http.Request) {
	var req PortsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	from, to := layout.SuggestPorts(req.From, req.To)
	writeJSON(w, http.StatusOK, PortsResponse{FromPort: from, ToPort: to})
}

// ListTemplates handles GET /api/templates.
//
//	@Summary		List board templates
//	@Tags			templates
//	@Produce		json
//	@Success		200	{object}	TemplatesResponse
//	@Security		BearerAuth
//	@Router			/templates [get]
func (h *Handler) ListTemplates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, TemplatesResponse{Templates: h.templates.List()})
}

// ListTraces handles GET /api/traces.
//
//	@Summary		List recent command traces
//	@Tags			traces
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			board	query		string	false	"Filter by board"
//	@Success		200		{object}	TracesResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/traces [get]
func (h *Handler) ListTraces(w http.ResponseWriter, r *http.Request) {
	if h.traces == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("trace store disabled"))
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	recs, err := h.traces.List(r.Context(), tracestore.ListParams{BoardID: q.Get("board"), Limit: limit})
	if err != nil {
		slog.Error("list traces failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, TracesResponse{Traces: recs})
}

// GetTrace handles GET /api/traces/{id}.
//
//	@Summary		Get one command trace
//	@Tags			traces
//	@Produce		json
//	@Param			id	path		string	true	"Trace id"
//	@Success		200	{object}	telemetry.TraceRecord
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/traces/{id} [get]
func (h *Handler) GetTrace(w http.ResponseWriter, r *http.Request) {
	if h.traces == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("trace store disabled"))
		return
	}
	rec, err := h.traces.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get trace", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
