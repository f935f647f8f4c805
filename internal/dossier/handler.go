package dossier

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	id "tenderdesk/pkg/domain"
	dErrors "tenderdesk/pkg/domain-errors"
	"tenderdesk/pkg/platform/httputil"
	"tenderdesk/pkg/requestcontext"
)

// Handler exposes the dossier endpoints.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler creates the dossier Handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the dossier routes. All routes require authentication;
// mutations additionally pass through the idempotency guard.
func (h *Handler) Register(r chi.Router, requireAuth, idempotent func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/dossiers", h.handleList)
		r.Get("/dossiers/{dossierID}", h.handleGet)

		r.Group(func(r chi.Router) {
			r.Use(idempotent)
			r.Post("/dossiers", h.handleCreate)
			r.Patch("/dossiers/{dossierID}", h.handleUpdate)
			r.Delete("/dossiers/{dossierID}", h.handleDelete)
			r.Post("/dossiers/{dossierID}/status", h.handleTransition)
		})
	})
}

type createRequest struct {
	Reference string     `json:"reference"`
	Title     string     `json:"title"`
	Authority string     `json:"authority"`
	Deadline  *time.Time `json:"deadline,omitempty"`
}

func (req *createRequest) Normalize() {
	req.Reference = strings.TrimSpace(req.Reference)
	req.Title = strings.TrimSpace(req.Title)
	req.Authority = strings.TrimSpace(req.Authority)
}

func (req *createRequest) Validate() error {
	if req.Reference == "" || req.Title == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "reference and title are required")
	}
	return nil
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[createRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	dossier, err := h.svc.Create(ctx, CreateInput{
		Reference: req.Reference,
		Title:     req.Title,
		Authority: req.Authority,
		Deadline:  req.Deadline,
	})
	if err != nil {
		h.writeServiceError(w, r, "create dossier", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, dossier)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	dossiers, err := h.svc.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "list dossiers", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"dossiers": dossiers})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	dossierID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	dossier, err := h.svc.Get(r.Context(), dossierID)
	if err != nil {
		h.writeServiceError(w, r, "get dossier", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dossier)
}

type updateRequest struct {
	Title     *string    `json:"title,omitempty"`
	Authority *string    `json:"authority,omitempty"`
	Deadline  *time.Time `json:"deadline,omitempty"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	dossierID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[updateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	dossier, err := h.svc.Update(ctx, dossierID, UpdateInput{
		Title:     req.Title,
		Authority: req.Authority,
		Deadline:  req.Deadline,
	})
	if err != nil {
		h.writeServiceError(w, r, "update dossier", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dossier)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	dossierID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), dossierID); err != nil {
		h.writeServiceError(w, r, "delete dossier", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type transitionRequest struct {
	Status string `json:"status"`
}

func (req *transitionRequest) Normalize() {
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
}

func (req *transitionRequest) Validate() error {
	if req.Status == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "status is required")
	}
	return nil
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	dossierID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[transitionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	dossier, err := h.svc.Transition(ctx, dossierID, Status(req.Status))
	if err != nil {
		h.writeServiceError(w, r, "transition dossier", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dossier)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (id.DossierID, bool) {
	dossierID, err := id.ParseDossierID(chi.URLParam(r, "dossierID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.DossierID{}, false
	}
	return dossierID, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(r.Context(), "dossier operation failed",
			"op", op,
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
