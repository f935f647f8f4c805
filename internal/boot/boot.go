// Package boot publishes the server's boot generation: an opaque value that
// changes when clients must discard cached state and reinitialize. Clients
// poll GET /boot and compare against the value they booted with.
package boot

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tenderdesk/pkg/platform/httputil"
)

// Generation holds the current boot value. Reads vastly outnumber writes, so
// the value is swapped atomically instead of mutex-guarded.
type Generation struct {
	current atomic.Pointer[generation]
}

type generation struct {
	ID        string    `json:"boot_id"`
	RotatedAt time.Time `json:"rotated_at"`
}

// NewGeneration creates a Generation with a fresh value.
func NewGeneration() *Generation {
	g := &Generation{}
	g.Rotate()
	return g
}

// Current returns the current boot value.
func (g *Generation) Current() string {
	return g.current.Load().ID
}

// Rotate atomically replaces the boot value and returns the new one.
// Readers observe either the old value or the new one, never a mix.
func (g *Generation) Rotate() string {
	next := &generation{
		ID:        uuid.NewString(),
		RotatedAt: time.Now().UTC(),
	}
	g.current.Store(next)
	return next.ID
}

// Handler serves the boot generation.
type Handler struct {
	gen *Generation
}

// NewHandler creates the boot Handler.
func NewHandler(gen *Generation) *Handler {
	return &Handler{gen: gen}
}

// Register mounts the boot route. The endpoint is unauthenticated: clients
// consult it before they have a session.
func (h *Handler) Register(r chi.Router) {
	r.Get("/boot", h.handleBoot)
}

func (h *Handler) handleBoot(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.gen.current.Load())
}
