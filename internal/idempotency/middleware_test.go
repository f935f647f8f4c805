package idempotency

import (
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tenderdesk/pkg/platform/httputil"
	"tenderdesk/pkg/testutil"
)

func newTestMiddleware() (*Middleware, *atomic.Int32) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	guard := NewGuard(24*time.Hour, 100*time.Millisecond, logger)
	mw := NewMiddleware(guard, logger)

	var handled atomic.Int32
	return mw, &handled
}

func countingHandler(handled *atomic.Int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := handled.Add(1)
		httputil.WriteJSON(w, http.StatusCreated, map[string]int32{"execution": n})
	})
}

func TestMiddleware_ReplaysDuplicate(t *testing.T) {
	mw, handled := newTestMiddleware()
	protected := mw.Handle(countingHandler(handled))

	send := func() *http.Request {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/dossiers", map[string]string{"title": "RFP 42"})
		req.Header.Set(HeaderKey, "client-key-1")
		return req
	}

	first := testutil.DoRequest(protected, send())
	testutil.AssertStatus(t, first, http.StatusCreated)
	assert.Empty(t, first.Header().Get("Idempotency-Replayed"))

	second := testutil.DoRequest(protected, send())
	testutil.AssertStatus(t, second, http.StatusCreated)
	assert.Equal(t, "true", second.Header().Get("Idempotency-Replayed"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, int32(1), handled.Load())
}

func TestMiddleware_KeyReuseWithDifferentBodyConflicts(t *testing.T) {
	mw, handled := newTestMiddleware()
	protected := mw.Handle(countingHandler(handled))

	req := testutil.NewJSONRequest(t, http.MethodPost, "/dossiers", map[string]string{"title": "RFP 42"})
	req.Header.Set(HeaderKey, "client-key-1")
	testutil.AssertStatus(t, testutil.DoRequest(protected, req), http.StatusCreated)

	other := testutil.NewJSONRequest(t, http.MethodPost, "/dossiers", map[string]string{"title": "RFP 43"})
	other.Header.Set(HeaderKey, "client-key-1")
	rr := testutil.DoRequest(protected, other)
	testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
	assert.Equal(t, int32(1), handled.Load())
}

func TestMiddleware_PassthroughWithoutKey(t *testing.T) {
	mw, handled := newTestMiddleware()
	protected := mw.Handle(countingHandler(handled))

	for range_i := 0; range_i < 2; range_i++ {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/dossiers", map[string]string{"title": "RFP 42"})
		testutil.AssertStatus(t, testutil.DoRequest(protected, req), http.StatusCreated)
	}
	assert.Equal(t, int32(2), handled.Load(), "requests without a key are never deduplicated")
}

func TestMiddleware_IgnoresNonMutatingMethods(t *testing.T) {
	mw, handled := newTestMiddleware()
	protected := mw.Handle(countingHandler(handled))

	for range_i := 0; range_i < 2; range_i++ {
		req := testutil.NewRequest(t, http.MethodGet, "/dossiers")
		req.Header.Set(HeaderKey, "client-key-1")
		testutil.AssertStatus(t, testutil.DoRequest(protected, req), http.StatusCreated)
	}
	assert.Equal(t, int32(2), handled.Load())
}

func TestMiddleware_BodyRemainsReadableDownstream(t *testing.T) {
	mw, _ := newTestMiddleware()

	var seen string
	protected := mw.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		seen = string(buf[:n])
		w.WriteHeader(http.StatusOK)
	}))

	req := testutil.NewJSONRequest(t, http.MethodPost, "/dossiers", map[string]string{"title": "RFP 42"})
	req.Header.Set(HeaderKey, "client-key-1")
	testutil.DoRequest(protected, req)

	assert.Contains(t, seen, "RFP 42")
}
