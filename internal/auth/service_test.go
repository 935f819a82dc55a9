package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/2beens/trainor/internal/api"
	"github.com/2beens/trainor/internal/auth"
	"github.com/2beens/trainor/internal/schema"
	"github.com/2beens/trainor/internal/supabase"
	"github.com/2beens/trainor/internal/telemetry/metrics"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
)

// TestMain will run goleak after all tests have been run in the package
// to detect any goroutine leaks
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

const testRedirectURL = "http://localhost:5173/auth/callback"

func fakeSession() *supabase.Session {
	return &supabase.Session{
		AccessToken:  gofakeit.UUID(),
		TokenType:    "bearer",
		ExpiresIn:    3600,
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
		RefreshToken: gofakeit.UUID(),
		User: supabase.User{
			ID:           gofakeit.UUID(),
			Email:        gofakeit.Email(),
			UserMetadata: map[string]any{"full_name": gofakeit.Name()},
		},
	}
}

type loadingRecorder struct {
	mu     sync.Mutex
	values []bool
}

func (r *loadingRecorder) record(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *loadingRecorder) get() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.values...)
}

// expectSubscribe captures the listener the service registers.
func expectSubscribe(client *MockauthClient, initial *supabase.Session) *supabase.AuthChangeListener {
	var listener supabase.AuthChangeListener
	client.EXPECT().
		OnAuthStateChange(gomock.Any()).
		DoAndReturn(func(fn supabase.AuthChangeListener) *supabase.Subscription {
			listener = fn
			fn(supabase.EventInitialSession, initial)
			return &supabase.Subscription{}
		}).Times(1)
	return &listener
}

func TestService_NewState(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := auth.NewService(NewMockauthClient(ctrl), NewMockprofileRepo(ctrl), testRedirectURL, nil)

	state := s.State()
	assert.True(t, state.Loading.Get())
	assert.False(t, state.IsAuthenticated.Get())
	assert.Nil(t, state.User.Get())
	assert.Nil(t, state.Session.Get())
	assert.Empty(t, state.Error.Get())
	assert.Nil(t, state.Profile.Get())
}

func TestService_Init(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockauthClient(ctrl)
	metricsManager := metrics.NewTestManager()
	s := auth.NewService(client, NewMockprofileRepo(ctrl), testRedirectURL, metricsManager)

	session := fakeSession()
	client.EXPECT().GetSession(gomock.Any()).Return(session, nil).Times(2)
	listener := expectSubscribe(client, session)

	res := s.Init(context.Background())
	require.True(t, res.Success())
	assert.Equal(t, session, res.Data())

	state := s.State()
	assert.False(t, state.Loading.Get())
	assert.True(t, state.IsAuthenticated.Get())
	require.NotNil(t, state.User.Get())
	assert.Equal(t, session.User.Email, state.User.Get().Email)
	assert.Equal(t, session.AccessToken, state.Session.Get().AccessToken)

	// second init does not subscribe twice
	res = s.Init(context.Background())
	require.True(t, res.Success())

	// session changes flow into the state
	state.Error.Set("stale error")
	state.Profile.Set(&schema.Profile{ID: session.User.ID})
	refreshed := fakeSession()
	(*listener)(supabase.EventTokenRefreshed, refreshed)
	assert.Equal(t, refreshed.AccessToken, state.Session.Get().AccessToken)
	assert.Empty(t, state.Error.Get())
	assert.NotNil(t, state.Profile.Get())

	(*listener)(supabase.EventSignedOut, nil)
	assert.False(t, state.IsAuthenticated.Get())
	assert.Nil(t, state.User.Get())
	assert.Nil(t, state.Session.Get())
	assert.Nil(t, state.Profile.Get())

	assert.Equal(t, float64(2), testutil.ToFloat64(metricsManager.CounterServiceCalls.WithLabelValues("auth.init", metrics.OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterAuthEvents.WithLabelValues(string(supabase.EventSignedOut))))
	assert.Equal(t, float64(0), testutil.ToFloat64(metricsManager.GaugeAuthenticated))

	s.Close()
	s.Close()
}

func TestService_Init_NoSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockauthClient(ctrl)
	s := auth.NewService(client, NewMockprofileRepo(ctrl), testRedirectURL, nil)

	client.EXPECT().GetSession(gomock.Any()).Return(nil, nil).Times(1)
	expectSubscribe(client, nil)

	res := s.Init(context.Background())
	require.True(t, res.Success())
	assert.Nil(t, res.Data())
	assert.False(t, s.State().Loading.Get())
	assert.False(t, s.State().IsAuthenticated.Get())
}

func TestService_Init_Failure(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockauthClient(ctrl)
	metricsManager := metrics.NewTestManager()
	s := auth.NewService(client, NewMockprofileRepo(ctrl), testRedirectURL, metricsManager)

	client.EXPECT().GetSession(gomock.Any()).Return(nil, errors.New("network unreachable")).Times(1)
	listener := expectSubscribe(client, nil)

	res := s.Init(context.Background())
	require.False(t, res.Success())
	assert.EqualError(t, res.Err(), "network unreachable")

	state := s.State()
	assert.False(t, state.Loading.Get())
	assert.False(t, state.IsAuthenticated.Get())
	assert.Nil(t, state.User.Get())
	assert.Equal(t, "network unreachable", state.Error.Get())
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterServiceCalls.WithLabelValues("auth.init", metrics.OutcomeFailure)))

	// a later sign in still reaches the state
	session := fakeSession()
	(*listener)(supabase.EventSignedIn, session)
	assert.True(t, state.IsAuthenticated.Get())
	require.NotNil(t, state.User.Get())
	assert.Equal(t, session.User.ID, state.User.Get().ID)
	assert.Empty(t, state.Error.Get())

	s.Close()
}

func TestService_SignUp(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockauthClient(ctrl)
	s := auth.NewService(client, NewMockprofileRepo(ctrl), testRedirectURL, nil)

	email, password, fullName := gofakeit.Email(), gofakeit.Password(true, true, true, false, false, 12), gofakeit.Name()
	user := &supabase.User{ID: gofakeit.UUID(), Email: email}

	client.EXPECT().
		SignUp(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params supabase.SignUpParams) (*supabase.AuthResponse, error) {
			assert.Equal(t, email, params.Email)
			assert.Equal(t, password, params.Password)
			assert.Equal(t, fullName, params.Data["full_name"])
			assert.Equal(t, testRedirectURL, params.EmailRedirectTo)
			return &supabase.AuthResponse{User: user}, nil
		}).Times(1)

	loading := &loadingRecorder{}
	unsub := s.State().Loading.Subscribe(loading.record)
	defer unsub()

	res := s.SignUp(context.Background(), email, password, fullName)
	require.True(t, res.Success())
	assert.Equal(t, user, res.Data().User)
	assert.Nil(t, res.Data().Session)
	assert.Equal(t, []bool{true, true, false}, loading.get())
}

func TestService_SignUp_Failure(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockauthClient(ctrl)
	s := auth.NewService(client, NewMockprofileRepo(ctrl), testRedirectURL, nil)

	apiErr := &supabase.Error{Status: 422, Code: "user_already_exists", Message: "User already registered"}
	client.EXPECT().SignUp(gomock.Any(), gomock.Any()).Return(nil, apiErr).Times(1)

	res := s.SignUp(context.Background(), gofakeit.Email(), "secret123", gofakeit.Name())
	require.False(t, res.Success())
	assert.ErrorIs(t, res.Err(), apiErr)
	assert.Equal(t, "User already registered", s.State().Error.Get())
	assert.False(t, s.State().Loading.Get())
}

func TestService_SignIn(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockauthClient(ctrl)
	metricsManager := metrics.NewTestManager()
	s := auth.NewService(client, NewMockprofileRepo(ctrl), testRedirectURL, metricsManager)

	session := fakeSession()
	s.State().Error.Set("previous failure")

	client.EXPECT().
		SignInWithPassword(gomock.Any(), session.User.Email, "secret123").
		Return(&supabase.AuthResponse{User: &session.User, Session: session}, nil).
		Times(1)

	res := s.SignIn(context.Background(), session.User.Email, "secret123")
	require.True(t, res.Success())
	assert.Equal(t, session, res.Data().Session)
	assert.Empty(t, s.State().Error.Get())
	assert.False(t, s.State().Loading.Get())
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterServiceCalls.WithLabelValues("auth.sign_in", metrics.OutcomeSuccess)))
}

func TestService_SignIn_Failure(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockauthClient(ctrl)
	s := auth.NewService(client, NewMockprofileRepo(ctrl), testRedirectURL, nil)

	client.EXPECT().
		SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, &supabase.Error{Status: 400, Code: "invalid_grant", Message: "Invalid login credentials"}).
		Times(1)

	loading := &loadingRecorder{}
	unsub := s.State().Loading.Subscribe(loading.record)
	defer unsub()

	res := s.SignIn(context.Background(), gofakeit.Email(), "wrong")
	require.False(t, res.Success())
	assert.EqualError(t, res.Err(), "Invalid login credentials")
	assert.Equal(t, "Invalid login credentials", s.State().Error.Get())
	assert.Equal(t, []bool{true, true, false}, loading.get())
}

func TestService_SignIn_PanicRecovered(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockauthClient(ctrl)
	metricsManager := metrics.NewTestManager()
	s := auth.NewService(client, NewMockprofileRepo(ctrl), testRedirectURL, metricsManager)

	client.EXPECT().
		SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, string) (*supabase.AuthResponse, error) {
			panic("boom")
		}).Times(1)

	res := s.SignIn(context.Background(), gofakeit.Email(), "secret123")
	require.False(t, res.Success())
	assert.EqualError(t, res.Err(), "sign in: boom")
	assert.False(t, s.State().Loading.Get())
	assert.Equal(t, "sign in: boom", s.State().Error.Get())
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterServiceCalls.WithLabelValues("auth.sign_in", metrics.OutcomeFailure)))
}

func TestService_SignOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockauthClient(ctrl)
	s := auth.NewService(client, NewMockprofileRepo(ctrl), testRedirectURL, nil)

	client.EXPECT().SignOut(gomock.Any()).Return(nil).Times(1)
	res := s.SignOut(context.Background())
	require.True(t, res.Success())
	assert.False(t, s.State().Loading.Get())

	client.EXPECT().SignOut(gomock.Any()).Return(errors.New("connection reset")).Times(1)
	res = s.SignOut(context.Background())
	require.False(t, res.Success())
	assert.Equal(t, "connection reset", s.State().Error.Get())
	assert.False(t, s.State().Loading.Get())
}

func TestService_LoadProfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockauthClient(ctrl)
	profiles := NewMockprofileRepo(ctrl)
	s := auth.NewService(client, profiles, testRedirectURL, nil)

	// not signed in, no remote call
	res := s.LoadProfile(context.Background())
	require.False(t, res.Success())
	assert.ErrorIs(t, res.Err(), api.ErrNotAuthenticated)
	assert.Equal(t, "User not authenticated", res.Err().Error())

	session := fakeSession()
	client.EXPECT().GetSession(gomock.Any()).Return(session, nil).Times(1)
	expectSubscribe(client, session)
	require.True(t, s.Init(context.Background()).Success())

	profile := &schema.Profile{
		ID:           session.User.ID,
		Email:        session.User.Email,
		FitnessLevel: schema.FitnessLevelBeginner,
		PrimaryGoal:  schema.PrimaryGoalStrength,
	}
	profiles.EXPECT().Get(gomock.Any(), session.User.ID).Return(profile, nil).Times(1)

	res = s.LoadProfile(context.Background())
	require.True(t, res.Success())
	assert.Equal(t, profile, res.Data())
	assert.Equal(t, profile, s.State().Profile.Get())

	profiles.EXPECT().Get(gomock.Any(), session.User.ID).Return(nil, supabase.ErrNoRowsReturned).Times(1)
	res = s.LoadProfile(context.Background())
	require.False(t, res.Success())
	assert.ErrorIs(t, res.Err(), supabase.ErrNoRowsReturned)
	assert.Equal(t, profile, s.State().Profile.Get())
}

func TestService_UpdateProfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockauthClient(ctrl)
	profiles := NewMockprofileRepo(ctrl)
	s := auth.NewService(client, profiles, testRedirectURL, nil)

	level := schema.FitnessLevelAdvanced
	update := schema.ProfileUpdate{FitnessLevel: &level}

	res := s.UpdateProfile(context.Background(), update)
	assert.ErrorIs(t, res.Err(), api.ErrNotAuthenticated)

	session := fakeSession()
	client.EXPECT().GetSession(gomock.Any()).Return(session, nil).Times(1)
	expectSubscribe(client, session)
	require.True(t, s.Init(context.Background()).Success())

	invalidLevel := schema.FitnessLevel("olympian")
	res = s.UpdateProfile(context.Background(), schema.ProfileUpdate{FitnessLevel: &invalidLevel})
	assert.ErrorIs(t, res.Err(), api.ErrInvalidInput)

	invalidGoal := schema.PrimaryGoal("fame")
	res = s.UpdateProfile(context.Background(), schema.ProfileUpdate{PrimaryGoal: &invalidGoal})
	assert.ErrorIs(t, res.Err(), api.ErrInvalidInput)

	negativeWeight := -3.5
	res = s.UpdateProfile(context.Background(), schema.ProfileUpdate{Weight: &negativeWeight})
	assert.ErrorIs(t, res.Err(), api.ErrInvalidInput)

	email := gofakeit.Email()
	res = s.UpdateProfile(context.Background(), schema.ProfileUpdate{Email: &email})
	assert.ErrorIs(t, res.Err(), api.ErrInvalidInput)

	updated := &schema.Profile{ID: session.User.ID, FitnessLevel: level}
	profiles.EXPECT().Update(gomock.Any(), session.User.ID, update).Return(updated, nil).Times(1)
	res = s.UpdateProfile(context.Background(), update)
	require.True(t, res.Success())
	assert.Equal(t, updated, s.State().Profile.Get())
}

func TestState_SnapshotAndWatch(t *testing.T) {
	state := auth.NewState()

	calls := 0
	unwatch := state.Watch(func() { calls++ })
	// once per cell on subscribe
	assert.Equal(t, 6, calls)

	session := fakeSession()
	state.Session.Set(session)
	state.User.Set(&session.User)
	state.IsAuthenticated.Set(true)
	state.Loading.Set(false)
	assert.Equal(t, 10, calls)

	snap := state.Snapshot()
	assert.False(t, snap.Loading)
	assert.True(t, snap.IsAuthenticated)
	assert.Equal(t, session.User.Email, snap.User.Email)
	require.NotNil(t, snap.SessionExpiresAt)
	assert.Equal(t, session.ExpiresAt, snap.SessionExpiresAt.Unix())

	unwatch()
	state.Error.Set("x")
	assert.Equal(t, 10, calls)
}
