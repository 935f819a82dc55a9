package middleware

import (
	"net/http"

	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
)

var (
	allowedMethods = []string{
		http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions,
	}
	allowedHeaders = []string{
		"Accept", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "Last-Event-ID",
	}
)

// Cors lets the front-end origins call the API. An empty list allows any origin.
func Cors(allowedOrigins []string) func(next http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		log.Warnln("CORS: no allowed origins configured, allowing all")
		allowedOrigins = []string{"*"}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		AllowCredentials: true,
		MaxAge:           600,
	})

	return c.Handler
}
