package dossier

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenderdesk/internal/idempotency"
	id "tenderdesk/pkg/domain"
	dErrors "tenderdesk/pkg/domain-errors"
	"tenderdesk/pkg/requestcontext"
	"tenderdesk/pkg/testutil"
)

// newDossierRouter wires the handler the way the real router does: a fake
// auth middleware injecting a fixed user, and the real idempotency guard.
func newDossierRouter(t *testing.T) (chi.Router, id.UserID) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	userID := id.NewUserID()

	fakeAuth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}

	guard := idempotency.NewGuard(24*time.Hour, 100*time.Millisecond, logger)
	idempotent := idempotency.NewMiddleware(guard, logger).Handle

	router := chi.NewRouter()
	svc := NewService(NewInMemoryStore(), logger)
	NewHandler(svc, logger).Register(router, fakeAuth, idempotent)
	return router, userID
}

func createPayload(reference string) map[string]string {
	return map[string]string{
		"reference": reference,
		"title":     "Road maintenance 2026",
		"authority": "City of Lyon",
	}
}

func TestHandler_CreateAndGet(t *testing.T) {
	router, userID := newDossierRouter(t)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/dossiers", createPayload("RFP-2026-001")))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	created := testutil.UnmarshalResponse[Dossier](t, rr)
	assert.Equal(t, StatusDraft, created.Status)
	assert.Equal(t, userID, created.CreatedBy)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/dossiers/"+created.ID.String()))
	testutil.AssertStatus(t, rr, http.StatusOK)
	got := testutil.UnmarshalResponse[Dossier](t, rr)
	assert.Equal(t, created.ID, got.ID)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/dossiers/not-a-uuid"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
}

func TestHandler_CreateIsIdempotent(t *testing.T) {
	router, _ := newDossierRouter(t)

	send := func() *http.Request {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/dossiers", createPayload("RFP-2026-002"))
		req.Header.Set(idempotency.HeaderKey, "create-rfp-2026-002")
		return req
	}

	first := testutil.DoRequest(router, send())
	testutil.AssertStatus(t, first, http.StatusCreated)

	// The retry replays the stored response instead of hitting the duplicate
	// reference conflict.
	second := testutil.DoRequest(router, send())
	testutil.AssertStatus(t, second, http.StatusCreated)
	assert.Equal(t, "true", second.Header().Get("Idempotency-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	// Without the key the same payload is a genuine duplicate.
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/dossiers", createPayload("RFP-2026-002")))
	testutil.AssertStatusAndError(t, rr, http.StatusConflict, string(dErrors.CodeConflict))
}

func TestHandler_Transition(t *testing.T) {
	router, _ := newDossierRouter(t)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/dossiers", createPayload("RFP-2026-003")))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	created := testutil.UnmarshalResponse[Dossier](t, rr)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost,
		"/dossiers/"+created.ID.String()+"/status", map[string]string{"status": "Submitted"}))
	testutil.AssertStatus(t, rr, http.StatusOK)
	updated := testutil.UnmarshalResponse[Dossier](t, rr)
	require.Equal(t, StatusSubmitted, updated.Status)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost,
		"/dossiers/"+created.ID.String()+"/status", map[string]string{"status": "draft"}))
	testutil.AssertStatusAndError(t, rr, http.StatusConflict, string(dErrors.CodeConflict))
}

func TestHandler_UpdateDraftOnly(t *testing.T) {
	router, _ := newDossierRouter(t)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/dossiers", createPayload("RFP-2026-004")))
	created := testutil.UnmarshalResponse[Dossier](t, rr)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPatch,
		"/dossiers/"+created.ID.String(), map[string]string{"title": "Revised title"}))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, "Revised title", testutil.UnmarshalResponse[Dossier](t, rr).Title)
}

func TestHandler_Delete(t *testing.T) {
	router, _ := newDossierRouter(t)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/dossiers", createPayload("RFP-2026-007")))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	created := testutil.UnmarshalResponse[Dossier](t, rr)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodDelete, "/dossiers/"+created.ID.String()))
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/dossiers/"+created.ID.String()))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, string(dErrors.CodeNotFound))
}

func TestHandler_List(t *testing.T) {
	router, _ := newDossierRouter(t)

	for _, ref := range []string{"RFP-2026-005", "RFP-2026-006"} {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/dossiers", createPayload(ref)))
		testutil.AssertStatus(t, rr, http.StatusCreated)
	}

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/dossiers"))
	testutil.AssertStatus(t, rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[struct {
		Dossiers []Dossier `json:"dossiers"`
	}](t, rr)
	assert.Len(t, resp.Dossiers, 2)
}
