// Package api exposes the user memory service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/nidhogg/xo-memory/internal/memory"
)

// MemoryService is the domain surface the HTTP layer depends on.
type MemoryService interface {
	Create(ctx context.Context, p memory.CreateParams) (*memory.Memory, error)
	List(ctx context.Context, p memory.ListParams) (*memory.ListResult, error)
	BulkCreate(ctx context.Context, p memory.BulkParams) (*memory.BulkResult, error)
	DeleteOne(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context, channel, peer string) (int64, error)
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	svc    MemoryService
	logger *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(svc MemoryService, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/", h.root)
	r.Get("/health", h.healthCheck)

	r.Route("/user-memories", func(r chi.Router) {
		r.Post("/", h.createMemory)
		r.Get("/", h.listMemories)
		r.Delete("/", h.deleteAllMemories)
		r.Post("/bulk", h.bulkCreateMemories)
		r.Delete("/{id}", h.deleteMemory)
	})

	return r
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "XO User Memory API",
		"health":  "/health",
	})
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type memoryCreateRequest struct {
	Channel    string     `json:"channel"`
	Peer       string     `json:"peer"`
	Fact       string     `json:"fact"`
	Category   string     `json:"category"`
	SessionID  *string    `json:"session_id"`
	Confidence *float64   `json:"confidence"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

func (h *Handler) createMemory(w http.ResponseWriter, r *http.Request) {
	var req memoryCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	m, err := h.svc.Create(r.Context(), memory.CreateParams{
		Channel:    req.Channel,
		Peer:       req.Peer,
		Fact:       req.Fact,
		Category:   req.Category,
		SessionID:  req.SessionID,
		Confidence: req.Confidence,
		ExpiresAt:  req.ExpiresAt,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

type memoryListResponse struct {
	Channel  string          `json:"channel"`
	Peer     string          `json:"peer"`
	UserID   *string         `json:"user_id"`
	XoUserID *string         `json:"xo_user_id"`
	Memories []memory.Memory `json:"memories"`
	Total    int             `json:"total"`
}

func (h *Handler) listMemories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := memory.ListParams{
		Channel:  q.Get("channel"),
		Peer:     q.Get("peer"),
		Category: q.Get("category"),
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit: must be an integer"})
			return
		}
		params.Limit = limit
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "since: must be an RFC 3339 timestamp"})
			return
		}
		params.Since = &since
	}

	result, err := h.svc.List(r.Context(), params)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memoryListResponse{
		Channel:  params.Channel,
		Peer:     params.Peer,
		UserID:   result.UserID,
		XoUserID: result.XoUserID,
		Memories: result.Memories,
		Total:    result.Total,
	})
}

// deleteMemory deletes by numeric id with no ownership check, so any caller
// can delete any memory. Matches the original API contract; flagged as an
// authorization gap for multi-tenant deployments.
func (h *Handler) deleteMemory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid memory id"})
		return
	}
	if err := h.svc.DeleteOne(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted_id": id})
}

type bulkCreateRequest struct {
	Channel   string             `json:"channel"`
	Peer      string             `json:"peer"`
	SessionID *string            `json:"session_id"`
	Memories  []memory.BulkEntry `json:"memories"`
}

func (h *Handler) bulkCreateMemories(w http.ResponseWriter, r *http.Request) {
	var req bulkCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result, err := h.svc.BulkCreate(r.Context(), memory.BulkParams{
		Channel:   req.Channel,
		Peer:      req.Peer,
		SessionID: req.SessionID,
		Entries:   req.Memories,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{
		"created":            result.Created,
		"duplicates_skipped": result.DuplicatesSkipped,
	})
}

func (h *Handler) deleteAllMemories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	count, err := h.svc.DeleteAll(r.Context(), q.Get("channel"), q.Get("peer"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted_count": count})
}

// writeServiceError maps domain errors onto HTTP statuses. Anything not in
// the taxonomy is a generic 500; the body never leaks store internals.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var validation *memory.ValidationError
	var conflict *memory.ConflictError
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": validation.Error()})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":       "memory exists",
			"existing_id": conflict.ExistingID,
		})
	case errors.Is(err, memory.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "memory not found"})
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
