package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/2beens/trainor/internal/telemetry/tracing"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

type SignUpParams struct {
	Email    string
	Password string
	// Data is stored as user metadata, e.g. full_name.
	Data map[string]any
	// EmailRedirectTo is where the confirmation link points to.
	EmailRedirectTo string
}

// AuthClient talks to the GoTrue endpoints and owns the current session.
type AuthClient struct {
	c             *Client
	store         SessionStore
	jwtSecret     string
	refreshMargin time.Duration
	now           func() time.Time

	mu      sync.Mutex
	session *Session
	loaded  bool

	// serializes token refreshes
	refreshMu sync.Mutex

	listenersMu    sync.Mutex
	listeners      map[int]AuthChangeListener
	listenersOrder []int
	nextListenerID int

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

func newAuthClient(c *Client, store SessionStore, opts Options) *AuthClient {
	return &AuthClient{
		c:             c,
		store:         store,
		jwtSecret:     opts.JWTSecret,
		refreshMargin: opts.RefreshMargin,
		now:           time.Now,
		listeners:     make(map[int]AuthChangeListener),
		stop:          make(chan struct{}),
	}
}

// GetSession returns the current session, loading it from the session store
// on first use and refreshing it when it is about to expire. It returns nil,
// nil when nobody is signed in.
func (a *AuthClient) GetSession(ctx context.Context) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "supabase.auth.getSession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session, err := a.loadSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	if session.ExpiresWithin(a.refreshMargin) {
		return a.refreshIfExpiring(ctx)
	}

	return session, nil
}

// refreshIfExpiring refreshes unless a concurrent caller already did.
func (a *AuthClient) refreshIfExpiring(ctx context.Context) (*Session, error) {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	current, err := a.loadSession(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil || !current.ExpiresWithin(a.refreshMargin) {
		return current, nil
	}

	log.Debugf("session for [%s] expires at %s, refreshing", current.User.Email, current.ExpiresAtTime())
	return a.refreshLocked(ctx, current)
}

func (a *AuthClient) loadSession(ctx context.Context) (*Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.loaded {
		return copySession(a.session), nil
	}

	stored, err := a.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stored session: %w", err)
	}
	a.loaded = true

	if stored == nil {
		return nil, nil
	}

	claims, err := ParseAccessToken(stored.AccessToken, a.jwtSecret)
	if err != nil && !errors.Is(err, jwt.ErrTokenExpired) {
		log.Warnf("dropping stored session with invalid access token: %s", err)
		if rmErr := a.store.Remove(ctx); rmErr != nil {
			log.Errorf("remove invalid stored session: %s", rmErr)
		}
		return nil, nil
	}
	if stored.ExpiresAt == 0 && claims != nil && claims.ExpiresAt != nil {
		stored.ExpiresAt = claims.ExpiresAt.Unix()
	}
	if errors.Is(err, jwt.ErrTokenExpired) && stored.ExpiresAt == 0 {
		// unknown expiry of an expired token, force a refresh
		stored.ExpiresAt = a.now().Unix()
	}

	a.session = stored
	return copySession(a.session), nil
}

func (a *AuthClient) SignUp(ctx context.Context, params SignUpParams) (_ *AuthResponse, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "supabase.auth.signUp")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if params.Email == "" || params.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidArgument)
	}

	query := url.Values{}
	if params.EmailRedirectTo != "" {
		query.Set("redirect_to", params.EmailRedirectTo)
	}

	body := map[string]any{
		"email":    params.Email,
		"password": params.Password,
	}
	if len(params.Data) > 0 {
		body["data"] = params.Data
	}

	var raw json.RawMessage
	if err := a.c.do(ctx, request{
		method: http.MethodPost,
		path:   authPath + "/signup",
		query:  query,
		body:   body,
	}, &raw); err != nil {
		return nil, err
	}

	// a session comes back only when email confirmation is disabled
	var peek struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &peek); err != nil {
		return nil, fmt.Errorf("unmarshal sign up response: %w", err)
	}

	if peek.AccessToken == "" {
		var user User
		if err := json.Unmarshal(raw, &user); err != nil {
			return nil, fmt.Errorf("unmarshal sign up user: %w", err)
		}
		return &AuthResponse{User: &user}, nil
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal sign up session: %w", err)
	}
	a.setSession(ctx, &session, EventSignedIn)

	return &AuthResponse{User: &session.User, Session: copySession(&session)}, nil
}

func (a *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (_ *AuthResponse, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "supabase.auth.signInWithPassword")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidArgument)
	}

	var session Session
	if err := a.c.do(ctx, request{
		method: http.MethodPost,
		path:   authPath + "/token",
		query:  url.Values{"grant_type": []string{"password"}},
		body: map[string]string{
			"email":    email,
			"password": password,
		},
	}, &session); err != nil {
		return nil, err
	}
	if session.AccessToken == "" {
		return nil, fmt.Errorf("sign in: %w", ErrNoSession)
	}

	a.setSession(ctx, &session, EventSignedIn)

	return &AuthResponse{User: &session.User, Session: copySession(&session)}, nil
}

// SignOut revokes the session remotely and forgets it locally. A session
// already gone on the server side is not an error.
func (a *AuthClient) SignOut(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "supabase.auth.signOut")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session, err := a.loadSession(ctx)
	if err != nil {
		return err
	}

	if session != nil {
		err := a.c.do(ctx, request{
			method: http.MethodPost,
			path:   authPath + "/logout",
			bearer: session.AccessToken,
		}, nil)
		if err != nil && !IsStatus(err, http.StatusUnauthorized) &&
			!IsStatus(err, http.StatusForbidden) &&
			!IsStatus(err, http.StatusNotFound) {
			return err
		}
	}

	a.clearSession(ctx)
	return nil
}

func (a *AuthClient) GetUser(ctx context.Context) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "supabase.auth.getUser")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session, err := a.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoSession
	}

	var user User
	if err := a.c.do(ctx, request{
		method: http.MethodGet,
		path:   authPath + "/user",
		bearer: session.AccessToken,
	}, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

// RefreshSession exchanges the refresh token for a new session. A rejected
// refresh token signs the user out.
func (a *AuthClient) RefreshSession(ctx context.Context) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "supabase.auth.refreshSession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	current, err := a.loadSession(ctx)
	if err != nil {
		return nil, err
	}

	return a.refreshLocked(ctx, current)
}

func (a *AuthClient) refreshLocked(ctx context.Context, current *Session) (*Session, error) {
	if current == nil || current.RefreshToken == "" {
		return nil, ErrNoSession
	}

	var session Session
	err := a.c.do(ctx, request{
		method: http.MethodPost,
		path:   authPath + "/token",
		query:  url.Values{"grant_type": []string{"refresh_token"}},
		body:   map[string]string{"refresh_token": current.RefreshToken},
	}, &session)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			log.Warnf("refresh token rejected [%d]: %s, signing out", apiErr.Status, apiErr.Message)
			a.clearSession(ctx)
		}
		return nil, err
	}

	a.setSession(ctx, &session, EventTokenRefreshed)
	return copySession(&session), nil
}

// AccessToken returns the bearer for row queries: the user's access token
// when signed in, empty otherwise (the anon key is used then).
func (a *AuthClient) AccessToken(ctx context.Context) (string, error) {
	session, err := a.GetSession(ctx)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", nil
	}
	return session.AccessToken, nil
}

// OnAuthStateChange registers fn for session changes. fn is called right away
// with INITIAL_SESSION and the current (possibly nil) session.
func (a *AuthClient) OnAuthStateChange(fn AuthChangeListener) *Subscription {
	a.listenersMu.Lock()
	id := a.nextListenerID
	a.nextListenerID++
	a.listeners[id] = fn
	a.listenersOrder = append(a.listenersOrder, id)
	a.listenersMu.Unlock()

	a.mu.Lock()
	current := copySession(a.session)
	a.mu.Unlock()
	fn(EventInitialSession, current)

	var once sync.Once
	return &Subscription{
		unsubscribe: func() {
			once.Do(func() {
				a.listenersMu.Lock()
				defer a.listenersMu.Unlock()
				delete(a.listeners, id)
				for i, lid := range a.listenersOrder {
					if lid == id {
						a.listenersOrder = append(a.listenersOrder[:i], a.listenersOrder[i+1:]...)
						break
					}
				}
			})
		},
	}
}

func (a *AuthClient) setSession(ctx context.Context, session *Session, event AuthChangeEvent) {
	if session.ExpiresAt == 0 && session.ExpiresIn > 0 {
		session.ExpiresAt = a.now().Add(time.Duration(session.ExpiresIn) * time.Second).Unix()
	}

	a.mu.Lock()
	a.session = copySession(session)
	a.loaded = true
	a.mu.Unlock()

	if err := a.store.Save(ctx, session); err != nil {
		log.Errorf("persist session: %s", err)
	}

	a.emit(event, session)
}

func (a *AuthClient) clearSession(ctx context.Context) {
	a.mu.Lock()
	a.session = nil
	a.loaded = true
	a.mu.Unlock()

	if err := a.store.Remove(ctx); err != nil {
		log.Errorf("remove persisted session: %s", err)
	}

	a.emit(EventSignedOut, nil)
}

func (a *AuthClient) emit(event AuthChangeEvent, session *Session) {
	a.listenersMu.Lock()
	listeners := make([]AuthChangeListener, 0, len(a.listenersOrder))
	for _, id := range a.listenersOrder {
		listeners = append(listeners, a.listeners[id])
	}
	a.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(event, copySession(session))
	}
}

func (a *AuthClient) startAutoRefresh(interval time.Duration) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-a.stop:
				return
			case <-ticker.C:
				a.autoRefreshTick()
			}
		}
	}()
}

func (a *AuthClient) autoRefreshTick() {
	a.mu.Lock()
	session := copySession(a.session)
	a.mu.Unlock()

	if session == nil || !session.ExpiresWithin(a.refreshMargin) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := a.refreshIfExpiring(ctx); err != nil {
		log.Errorf("auto refresh session: %s", err)
	}
}

func (a *AuthClient) stopAutoRefresh() {
	a.stopOnce.Do(func() {
		close(a.stop)
	})
	a.wg.Wait()
}

func copySession(s *Session) *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
