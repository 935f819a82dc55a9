package middleware

import (
	"net/http"
	"strings"

	"github.com/2beens/trainor/internal/api"
	"github.com/2beens/trainor/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=middleware_mocks_test.go -package=middleware_test

type sessionChecker interface {
	IsAuthenticated() bool
}

type protectedRoute struct {
	method string
	path   string
}

// AuthMiddlewareHandler rejects requests to user data routes while nobody is
// signed in.
type AuthMiddlewareHandler struct {
	sessionChecker      sessionChecker
	protectedRoutes     map[protectedRoute]bool
	protectedPrefixes   []string
	unprotectedPrefixes []string
}

func NewAuthMiddlewareHandler(sessionChecker sessionChecker) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		sessionChecker: sessionChecker,
		protectedRoutes: map[protectedRoute]bool{
			{method: http.MethodPost, path: "/workouts"}: true,
		},
		protectedPrefixes: []string{
			"/profile",
		},
		unprotectedPrefixes: []string{
			"/workouts/duration",
		},
	}
}

func (h *AuthMiddlewareHandler) isProtected(method, path string) bool {
	for _, prefix := range h.unprotectedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	if h.protectedRoutes[protectedRoute{method: method, path: path}] {
		return true
	}
	for _, prefix := range h.protectedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions || !h.isProtected(r.Method, r.URL.Path) {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			if !h.sessionChecker.IsAuthenticated() {
				log.Tracef("[no session] [auth middleware] unauthorized => %s %s", r.Method, r.URL.Path)
				api.WriteError(w, api.ErrNotAuthenticated)
				span.SetStatus(codes.Error, "not-authenticated")
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r)
		})
	}
}
