package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/2beens/trainor/internal/api"
	"github.com/2beens/trainor/internal/result"
	"github.com/2beens/trainor/internal/schema"
	"github.com/2beens/trainor/internal/supabase"
	"github.com/2beens/trainor/internal/telemetry/metrics"
	"github.com/2beens/trainor/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=auth_mocks_test.go -package=auth_test

type authClient interface {
	GetSession(ctx context.Context) (*supabase.Session, error)
	SignUp(ctx context.Context, params supabase.SignUpParams) (*supabase.AuthResponse, error)
	SignInWithPassword(ctx context.Context, email, password string) (*supabase.AuthResponse, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(fn supabase.AuthChangeListener) *supabase.Subscription
}

type profileRepo interface {
	Get(ctx context.Context, userID string) (*schema.Profile, error)
	Update(ctx context.Context, userID string, update schema.ProfileUpdate) (*schema.Profile, error)
}

// Service wraps the remote auth calls into envelopes and keeps State in sync
// with the session.
type Service struct {
	client      authClient
	profiles    profileRepo
	state       *State
	redirectURL string
	metrics     *metrics.Manager

	subMu sync.Mutex
	sub   *supabase.Subscription
}

func NewService(
	client authClient,
	profiles profileRepo,
	redirectURL string,
	metricsManager *metrics.Manager,
) *Service {
	return &Service{
		client:      client,
		profiles:    profiles,
		state:       NewState(),
		redirectURL: redirectURL,
		metrics:     metricsManager,
	}
}

func (s *Service) State() *State {
	return s.state
}

func (s *Service) IsAuthenticated() bool {
	return s.state.IsAuthenticated.Get()
}

// Init publishes the current session and follows session changes until Close.
func (s *Service) Init(ctx context.Context) (res result.Result[*supabase.Session]) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.auth.init")
	start := time.Now()
	defer func() {
		s.observe("init", res, start)
		tracing.EndSpanWithErrCheck(span, res.Err())
	}()
	defer s.state.Loading.Set(false)
	defer publishFailure(s, &res)
	defer result.Recover(&res, "auth init")

	session, err := s.client.GetSession(ctx)
	// subscribe on failure too, a later sign in must still reach the state
	s.subscribe()
	if err != nil {
		return failAs[*supabase.Session]("init", err)
	}

	s.state.publishSession(session)

	return result.Ok(session)
}

func (s *Service) SignUp(ctx context.Context, email, password, fullName string) (res result.Result[*supabase.AuthResponse]) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.auth.signUp")
	start := time.Now()
	defer func() {
		s.observe("sign_up", res, start)
		tracing.EndSpanWithErrCheck(span, res.Err())
	}()
	defer s.state.Loading.Set(false)
	defer publishFailure(s, &res)
	defer result.Recover(&res, "sign up")

	s.state.Loading.Set(true)
	s.state.Error.Set("")

	resp, err := s.client.SignUp(ctx, supabase.SignUpParams{
		Email:           email,
		Password:        password,
		Data:            map[string]any{"full_name": fullName},
		EmailRedirectTo: s.redirectURL,
	})
	if err != nil {
		return failAs[*supabase.AuthResponse]("sign up", err)
	}

	log.Infof("signed up [%s], confirmation pending: %t", email, resp.Session == nil)
	return result.Ok(resp)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (res result.Result[*supabase.AuthResponse]) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.auth.signIn")
	start := time.Now()
	defer func() {
		s.observe("sign_in", res, start)
		tracing.EndSpanWithErrCheck(span, res.Err())
	}()
	defer s.state.Loading.Set(false)
	defer publishFailure(s, &res)
	defer result.Recover(&res, "sign in")

	s.state.Loading.Set(true)
	s.state.Error.Set("")

	resp, err := s.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		return failAs[*supabase.AuthResponse]("sign in", err)
	}

	log.Infof("signed in [%s]", email)
	return result.Ok(resp)
}

func (s *Service) SignOut(ctx context.Context) (res result.Result[struct{}]) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.auth.signOut")
	start := time.Now()
	defer func() {
		s.observe("sign_out", res, start)
		tracing.EndSpanWithErrCheck(span, res.Err())
	}()
	defer s.state.Loading.Set(false)
	defer publishFailure(s, &res)
	defer result.Recover(&res, "sign out")

	s.state.Loading.Set(true)
	s.state.Error.Set("")

	if err := s.client.SignOut(ctx); err != nil {
		return failAs[struct{}]("sign out", err)
	}

	return result.Ok(struct{}{})
}

// LoadProfile reads the signed in user's profile row and publishes it.
func (s *Service) LoadProfile(ctx context.Context) (res result.Result[*schema.Profile]) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.auth.loadProfile")
	start := time.Now()
	defer func() {
		s.observe("load_profile", res, start)
		tracing.EndSpanWithErrCheck(span, res.Err())
	}()
	defer result.Recover(&res, "load profile")

	user := s.state.User.Get()
	if user == nil {
		return result.Fail[*schema.Profile](api.ErrNotAuthenticated)
	}

	profile, err := s.profiles.Get(ctx, user.ID)
	if err != nil {
		log.Errorf("load profile [%s]: %s", user.ID, err)
		return result.Fail[*schema.Profile](err)
	}

	s.state.Profile.Set(profile)
	return result.Ok(profile)
}

// UpdateProfile patches the signed in user's own profile row.
func (s *Service) UpdateProfile(ctx context.Context, update schema.ProfileUpdate) (res result.Result[*schema.Profile]) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.auth.updateProfile")
	start := time.Now()
	defer func() {
		s.observe("update_profile", res, start)
		tracing.EndSpanWithErrCheck(span, res.Err())
	}()
	defer result.Recover(&res, "update profile")

	user := s.state.User.Get()
	if user == nil {
		return result.Fail[*schema.Profile](api.ErrNotAuthenticated)
	}
	if err := validateProfileUpdate(update); err != nil {
		return result.Fail[*schema.Profile](err)
	}

	profile, err := s.profiles.Update(ctx, user.ID, update)
	if err != nil {
		log.Errorf("update profile [%s]: %s", user.ID, err)
		return result.Fail[*schema.Profile](err)
	}

	s.state.Profile.Set(profile)
	return result.Ok(profile)
}

// Close stops following session changes.
func (s *Service) Close() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.sub != nil {
		s.sub.Unsubscribe()
		s.sub = nil
	}
}

func (s *Service) subscribe() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.sub != nil {
		return
	}
	s.sub = s.client.OnAuthStateChange(s.onAuthStateChange)
}

func (s *Service) onAuthStateChange(event supabase.AuthChangeEvent, session *supabase.Session) {
	log.Debugf("auth state change: %s", event)

	s.state.publishSession(session)
	s.state.Error.Set("")
	if event == supabase.EventSignedOut {
		s.state.Profile.Set(nil)
	}

	s.metrics.AuthEvent(string(event), session != nil)
}

func failAs[T any](op string, err error) result.Result[T] {
	log.Errorf("%s: %s", op, err)
	return result.Fail[T](err)
}

// publishFailure mirrors a failed result into the Error cell, including
// results produced by a recovered panic.
func publishFailure[T any](s *Service, res *result.Result[T]) {
	if err := res.Err(); err != nil {
		s.state.Error.Set(err.Error())
	}
}

func (s *Service) observe(op string, res interface{ Success() bool }, start time.Time) {
	s.metrics.ObserveServiceCall("auth."+op, res.Success(), time.Since(start).Seconds())
}

func validateProfileUpdate(update schema.ProfileUpdate) error {
	if update.FitnessLevel != nil && !update.FitnessLevel.IsValid() {
		return fmt.Errorf("%w: unknown fitness level %q", api.ErrInvalidInput, *update.FitnessLevel)
	}
	if update.PrimaryGoal != nil && !update.PrimaryGoal.IsValid() {
		return fmt.Errorf("%w: unknown primary goal %q", api.ErrInvalidInput, *update.PrimaryGoal)
	}
	if update.Username != nil && strings.TrimSpace(*update.Username) == "" {
		return fmt.Errorf("%w: username is blank", api.ErrInvalidInput)
	}
	if update.Weight != nil && *update.Weight <= 0 {
		return fmt.Errorf("%w: weight must be positive", api.ErrInvalidInput)
	}
	if update.Height != nil && *update.Height <= 0 {
		return fmt.Errorf("%w: height must be positive", api.ErrInvalidInput)
	}
	if update.Email != nil {
		// owned by the auth server
		return fmt.Errorf("%w: email cannot be changed here", api.ErrInvalidInput)
	}
	return nil
}
