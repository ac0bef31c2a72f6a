package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecoveryWritesJSON(t *testing.T) {
	handler := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestLoggingSetsRequestID(t *testing.T) {
	var seen string
	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", seen)
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestCORSAllowsCredentialedOrigin(t *testing.T) {
	handler := CORS([]string{"https://academy.test"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	req.Header.Set("Origin", "https://academy.test")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "https://academy.test", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestProxyTimeoutCancelsIdleHandler(t *testing.T) {
	done := make(chan struct{})
	handler := ProxyTimeout(time.Second, 20*time.Millisecond)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		close(done)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/", nil))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("idle handler was not cancelled")
	}
}

func TestRejectTraversal(t *testing.T) {
	handler := RejectTraversal(okHandler())

	for path, want := range map[string]int{
		"/admin/courses":               http.StatusOK,
		"/admin/courses/":              http.StatusOK,
		"/api/v1/admin/modules/a..b/1": http.StatusOK,
		"/learner/../admin/x":          http.StatusBadRequest,
		"/admin/./courses":             http.StatusBadRequest,
		"/admin/courses/..":            http.StatusBadRequest,
		`/admin\..\payments`:           http.StatusBadRequest,
		"/admin/\x01courses":           http.StatusBadRequest,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.URL.Path = path

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, path)
	}
}

func TestTimeoutAnswersWithJSONEnvelope(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	handler := Timeout(20 * time.Millisecond)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"code":"REQUEST_TIMEOUT"`)
	assert.Contains(t, rec.Body.String(), `"details":"20ms"`)
}
