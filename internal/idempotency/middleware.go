package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"

	"tenderdesk/pkg/platform/httputil"
	"tenderdesk/pkg/requestcontext"
)

// HeaderKey is the request header carrying the client-chosen idempotency key.
const HeaderKey = "Idempotency-Key"

// headerReplayed marks a response served from the guard's record rather than
// a fresh execution.
const headerReplayed = "Idempotency-Replayed"

const maxBodyBytes = 1 << 20

// Middleware applies the guard to mutating requests that carry an
// Idempotency-Key header. Requests without the header pass through.
type Middleware struct {
	guard  *Guard
	logger *slog.Logger
}

// NewMiddleware creates the idempotency middleware.
func NewMiddleware(guard *Guard, logger *slog.Logger) *Middleware {
	return &Middleware{guard: guard, logger: logger}
}

// Handle wraps a handler. The fingerprint binds the key to the method, path,
// and body, so a key reused for a different request is rejected instead of
// silently replaying an unrelated response.
func (m *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderKey)
		if key == "" || !mutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			m.logger.WarnContext(ctx, "failed to read request body",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		fingerprint := fingerprintOf(r.Method, r.URL.Path, body)

		response, replayed, err := m.guard.Execute(ctx, key, fingerprint, func() (Response, error) {
			rec := newRecorder()
			next.ServeHTTP(rec, r)
			return rec.response(), nil
		})
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		if replayed {
			replaysTotal.Inc()
			w.Header().Set(headerReplayed, "true")
		}
		if response.ContentType != "" {
			w.Header().Set("Content-Type", response.ContentType)
		}
		w.WriteHeader(response.StatusCode)
		_, _ = w.Write(response.Body)
	})
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func fingerprintOf(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// recorder captures the downstream response so the guard can store it.
type recorder struct {
	status int
	header http.Header
	body   bytes.Buffer
}

func newRecorder() *recorder {
	return &recorder{status: http.StatusOK, header: make(http.Header)}
}

func (r *recorder) Header() http.Header {
	return r.header
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
}

func (r *recorder) Write(p []byte) (int, error) {
	return r.body.Write(p)
}

func (r *recorder) response() Response {
	return Response{
		StatusCode:  r.status,
		ContentType: r.header.Get("Content-Type"),
		Body:        bytes.Clone(r.body.Bytes()),
	}
}
