package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/2beens/trainor/internal/api"
	"github.com/2beens/trainor/internal/result"
	"github.com/2beens/trainor/internal/telemetry/metrics"
	"github.com/2beens/trainor/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var errInternal = errors.New("internal error")

// PanicRecovery answers a panicking handler with a failed 500 envelope.
// http.ErrAbortHandler is re-raised so net/http still aborts the response.
func PanicRecovery(metricsManager *metrics.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(respWriter http.ResponseWriter, req *http.Request) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(r)
				}

				log.Errorf("http: panic serving %s %s [%s]: %v\n%s", req.Method, req.URL.Path, pkg.ClientIP(req), r, debug.Stack())
				metricsManager.HandlerPanic()

				span := trace.SpanFromContext(req.Context())
				span.RecordError(fmt.Errorf("panic: %v", r))
				span.SetStatus(codes.Error, "handler panic")

				api.WriteResult(respWriter, result.Fail[struct{}](errInternal))
			}()

			// handler call
			next.ServeHTTP(respWriter, req)
		})
	}
}
