package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/2beens/trainor/internal/api"
	"github.com/2beens/trainor/internal/result"
	"github.com/2beens/trainor/internal/schema"
	"github.com/2beens/trainor/pkg"

	log "github.com/sirupsen/logrus"
)

const streamKeepAlive = 15 * time.Second

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName,omitempty"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(r)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteResult(w, handler.service.SignUp(r.Context(), creds.Email, creds.Password, strings.TrimSpace(creds.FullName)))
}

func (handler *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(r)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteResult(w, handler.service.SignIn(r.Context(), creds.Email, creds.Password))
}

func (handler *Handler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	api.WriteResult(w, handler.service.SignOut(r.Context()))
}

func (handler *Handler) HandleState(w http.ResponseWriter, _ *http.Request) {
	api.WriteResult(w, result.Ok(handler.service.State().Snapshot()))
}

// HandleStateStream pushes a snapshot as a server-sent event whenever the auth
// state changes. Bursts of changes are coalesced into one event.
func (handler *Handler) HandleStateStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	changed := make(chan struct{}, 1)
	unwatch := handler.service.State().Watch(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unwatch()

	w.Header().Set("Content-Type", pkg.ContentType.EventStream)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-changed:
			snapshot, err := json.Marshal(handler.service.State().Snapshot())
			if err != nil {
				log.Errorf("marshal auth state: %s", err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: state\ndata: %s\n\n", snapshot); err != nil {
				log.Debugf("auth state stream closed: %s", err)
				return
			}
			flusher.Flush()
		}
	}
}

func (handler *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	api.WriteResult(w, handler.service.LoadProfile(r.Context()))
}

func (handler *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update schema.ProfileUpdate
	if err := api.DecodeJSON(r, &update); err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteResult(w, handler.service.UpdateProfile(r.Context(), update))
}

func readCredentials(r *http.Request) (credentials, error) {
	var creds credentials
	if err := api.DecodeJSON(r, &creds); err != nil {
		return creds, err
	}
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return creds, fmt.Errorf("%w: email and password are required", api.ErrInvalidInput)
	}
	return creds, nil
}
