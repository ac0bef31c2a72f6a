package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// ProxyTimeout bounds reverse-proxied routes without buffering the response.
// maxDuration caps the whole exchange; idleTimeout caps the gap between
// writes, so a stalled upstream is cut off while a slow but live page load
// keeps going. Flush is preserved for streamed upstream responses.
func ProxyTimeout(maxDuration, idleTimeout time.Duration) func(http.Handler) http.Handler {
	if maxDuration <= 0 {
		maxDuration = 2 * time.Minute
	}
	if idleTimeout <= 0 || idleTimeout > maxDuration {
		idleTimeout = maxDuration
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), maxDuration)
			defer cancel()

			rc := http.NewResponseController(w)
			_ = rc.SetWriteDeadline(time.Now().Add(maxDuration))

			iw := &idleWriter{
				ResponseWriter: w,
				rc:             rc,
				idleTimeout:    idleTimeout,
				cancel:         cancel,
			}
			iw.touch()
			defer iw.stop()

			next.ServeHTTP(iw, r.WithContext(ctx))
		})
	}
}

type idleWriter struct {
	http.ResponseWriter
	rc          *http.ResponseController
	idleTimeout time.Duration
	cancel      context.CancelFunc

	mu    sync.Mutex
	timer *time.Timer
}

func (iw *idleWriter) touch() {
	iw.mu.Lock()
	defer iw.mu.Unlock()

	if iw.timer != nil {
		iw.timer.Reset(iw.idleTimeout)
		return
	}
	iw.timer = time.AfterFunc(iw.idleTimeout, func() {
		_ = iw.rc.SetWriteDeadline(time.Now())
		iw.cancel()
	})
}

func (iw *idleWriter) stop() {
	iw.mu.Lock()
	defer iw.mu.Unlock()

	if iw.timer != nil {
		iw.timer.Stop()
	}
}

func (iw *idleWriter) Write(b []byte) (int, error) {
	iw.touch()
	return iw.ResponseWriter.Write(b)
}

func (iw *idleWriter) Unwrap() http.ResponseWriter {
	return iw.ResponseWriter
}

func (iw *idleWriter) Flush() {
	if f, ok := iw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
