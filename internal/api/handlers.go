package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rewdy/snaption/internal/apperr"
	"github.com/rewdy/snaption/internal/catalog"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// photoPath extracts the root-relative photo path from a wildcard route.
// Supports encoded slashes from API clients (e.g. trips%2Frome%2Fa.jpg).
func photoPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, apperr.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrSaveFailed):
		writeJSON(w, http.StatusInternalServerError, errorBody("save failed"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// OpenProject handles POST /api/project.
func (h *Handler) OpenProject(w http.ResponseWriter, r *http.Request) {
	var req OpenProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	// Indexing outlives this request; the controller owns cancellation.
	if err := h.svc.OpenProject(context.Background(), req.Path); err != nil {
		writeServiceError(w, "open project", err)
		return
	}
	writeJSON(w, http.StatusAccepted, StatusResponse{Root: req.Path, State: catalog.StateIndexing})
}

// Status handles GET /api/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	state, status := h.svc.ctl.State()
	writeJSON(w, http.StatusOK, StatusResponse{Root: h.svc.ctl.Root(), State: state, Status: status})
}

// ListPhotos handles GET /api/photos with optional q, sort, and group
// parameters; omitted parameters leave the stored query state untouched.
func (h *Handler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var query *string
	if q.Has("q") {
		v := q.Get("q")
		query = &v
	}

	var sort *catalog.SortMode
	if q.Has("sort") {
		mode, err := catalog.ParseSortMode(q.Get("sort"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		sort = &mode
	}

	var grouped *bool
	if q.Has("group") {
		v, err := strconv.ParseBool(q.Get("group"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("group must be a boolean"))
			return
		}
		grouped = &v
	}

	writeJSON(w, http.StatusOK, h.svc.ListPhotos(query, sort, grouped))
}

// Performance handles GET /api/performance.
func (h *Handler) Performance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Performance())
}

// GetSidecar handles GET /api/sidecar/*.
func (h *Handler) GetSidecar(w http.ResponseWriter, r *http.Request) {
	rel := photoPath(r)
	if rel == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("photo path is required"))
		return
	}
	detail, err := h.svc.GetSidecar(rel)
	if err != nil {
		writeServiceError(w, "get sidecar", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// UpdateSidecar handles PUT /api/sidecar/* with optimistic concurrency via
// the If-Match header.
func (h *Handler) UpdateSidecar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	rel := photoPath(r)
	if rel == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("photo path is required"))
		return
	}

	var req UpdateSidecarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	detail, err := h.svc.UpdateSidecar(rel, req.Notes, req.Tags, req.Labels, ifMatch)
	if err != nil {
		writeServiceError(w, "update sidecar", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// AddLabel handles POST /api/labels/*.
func (h *Handler) AddLabel(w http.ResponseWriter, r *http.Request) {
	rel := photoPath(r)
	if rel == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("photo path is required"))
		return
	}

	var req AddLabelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	detail, err := h.svc.AddLabel(rel, req.X, req.Y, req.Text)
	if err != nil {
		writeServiceError(w, "add label", err)
		return
	}
	writeJSON(w, http.StatusCreated, detail)
}

// Thumbnail handles GET /api/thumbnail/*?size=360.
func (h *Handler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	rel := photoPath(r)
	if rel == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("photo path is required"))
		return
	}
	size := 360
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 16 || n > 2048 {
			writeJSON(w, http.StatusBadRequest, errorBody("size must be between 16 and 2048"))
			return
		}
		size = n
	}

	data, err := h.svc.Thumbnail(rel, size)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		// Decode failures are non-fatal; the client shows a placeholder.
		slog.Debug("thumbnail failed", slog.String("path", rel), slog.String("error", err.Error()))
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("no thumbnail"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Prefetch handles POST /api/thumbnails/prefetch.
func (h *Handler) Prefetch(w http.ResponseWriter, r *http.Request) {
	var req PrefetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	n := h.svc.PrefetchThumbnails(r.Context(), req.Size)
	writeJSON(w, http.StatusAccepted, PrefetchResponse{Scheduled: n})
}
