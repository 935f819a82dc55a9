//go:build integration_test || all_tests

package test

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/2beens/trainor/internal/supabase"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName,omitempty"`
}

type authState struct {
	IsAuthenticated bool `json:"isAuthenticated"`
	User            *struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (s *IntegrationTestSuite) signIn(ctx context.Context, ip string) {
	t := s.T()
	resp, env := DoJSON(ctx, t, serverEndpoint, http.MethodPost, "/auth/signin",
		credentials{Email: testEmail, Password: testPassword},
		map[string]string{"X-Real-Ip": ip},
	)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)
	require.True(t, env.Success)
}

func (s *IntegrationTestSuite) signOut(ctx context.Context) {
	t := s.T()
	resp, env := DoJSON(ctx, t, serverEndpoint, http.MethodPost, "/auth/signout", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)
}

func (s *IntegrationTestSuite) authState(ctx context.Context) authState {
	t := s.T()
	resp, env := DoJSON(ctx, t, serverEndpoint, http.MethodGet, "/auth/state", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state authState
	require.NoError(t, json.Unmarshal(env.Data, &state))
	return state
}

func (s *IntegrationTestSuite) TestAuth_SessionPersistedInRedis() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storageKey := supabase.StorageKey(s.backend.URL)

	s.signIn(ctx, "198.51.100.10")

	state := s.authState(ctx)
	assert.True(t, state.IsAuthenticated)
	require.NotNil(t, state.User)
	assert.Equal(t, testEmail, state.User.Email)

	sessionBytes, err := s.redisClient.Get(ctx, storageKey).Bytes()
	require.NoError(t, err)
	var session supabase.Session
	require.NoError(t, json.Unmarshal(sessionBytes, &session))
	assert.Equal(t, state.User.ID, session.User.ID)
	assert.NotEmpty(t, session.AccessToken)

	ttl, err := s.redisClient.TTL(ctx, storageKey).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)

	s.signOut(ctx)
	_, err = s.redisClient.Get(ctx, storageKey).Result()
	assert.ErrorIs(t, err, redis.Nil)
	assert.False(t, s.authState(ctx).IsAuthenticated)
}

func (s *IntegrationTestSuite) TestAuth_ProfileGuarded() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resp, env := DoJSON(ctx, t, serverEndpoint, http.MethodGet, "/profile", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "User not authenticated", env.Error)

	resp, env = DoJSON(ctx, t, serverEndpoint, http.MethodPatch, "/profile", map[string]string{"username": "kim"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, env.Success)
}

func (s *IntegrationTestSuite) TestAuth_SignInRateLimited() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	header := map[string]string{"X-Real-Ip": "203.0.113.7"}
	wrong := credentials{Email: testEmail, Password: "not-the-password"}

	for i := 0; i < authRateLimitPerMin; i++ {
		resp, env := DoJSON(ctx, t, serverEndpoint, http.MethodPost, "/auth/signin", wrong, header)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, env.Error)
		assert.False(t, env.Success)
	}

	resp, _ := DoJSON(ctx, t, serverEndpoint, http.MethodPost, "/auth/signin", wrong, header)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	// other clients are not affected
	resp, _ = DoJSON(ctx, t, serverEndpoint, http.MethodPost, "/auth/signin", wrong, map[string]string{"X-Real-Ip": "203.0.113.8"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
