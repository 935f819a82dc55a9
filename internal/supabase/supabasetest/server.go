// Package supabasetest runs an in-process stand-in for the hosted backend:
// enough of the auth and row endpoints to drive the service layer in tests.
package supabasetest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/2beens/trainor/internal/supabase"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultAnonKey   = "test-anon-key"
	DefaultJWTSecret = "test-jwt-secret-with-enough-bytes-for-hs256"
)

type user struct {
	id        string
	email     string
	password  string
	metadata  map[string]any
	createdAt time.Time
}

type failure struct {
	status int
	body   string
}

type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   string
}

type Server struct {
	*httptest.Server

	AnonKey   string
	JWTSecret string
	// RequireEmailConfirmation makes sign up return a user without a session.
	RequireEmailConfirmation bool
	TokenTTL                 time.Duration

	mu            sync.Mutex
	users         map[string]*user // by email
	refreshTokens map[string]string
	revoked       map[string]bool
	tables        map[string][]map[string]any
	failures      map[string][]failure
	requests      []RecordedRequest
}

func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		AnonKey:       DefaultAnonKey,
		JWTSecret:     DefaultJWTSecret,
		TokenTTL:      time.Hour,
		users:         make(map[string]*user),
		refreshTokens: make(map[string]string),
		revoked:       make(map[string]bool),
		tables:        make(map[string][]map[string]any),
		failures:      make(map[string][]failure),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)

	return s
}

// AddUser registers a confirmed user and returns its id.
func (s *Server) AddUser(email, password, fullName string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, password, map[string]any{"full_name": fullName}).id
}

func (s *Server) addUserLocked(email, password string, metadata map[string]any) *user {
	u := &user{
		id:        uuid.NewString(),
		email:     email,
		password:  password,
		metadata:  metadata,
		createdAt: time.Now().UTC(),
	}
	s.users[strings.ToLower(email)] = u
	return u
}

// Seed inserts rows into a table as is. Rows are anything that marshals to
// a JSON object.
func (s *Server) Seed(table string, rows ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		b, err := json.Marshal(r)
		if err != nil {
			panic(fmt.Sprintf("seed %s: %s", table, err))
		}
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			panic(fmt.Sprintf("seed %s: %s", table, err))
		}
		s.tables[table] = append(s.tables[table], m)
	}
}

func (s *Server) Rows(table string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, len(s.tables[table]))
	copy(out, s.tables[table])
	return out
}

// FailNext makes the next request to method+path fail with the given status
// and raw JSON body.
func (s *Server) FailNext(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], failure{status: status, body: body})
}

func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestCount counts requests by method whose path starts with pathPrefix.
func (s *Server) RequestCount(method, pathPrefix string) int {
	count := 0
	for _, r := range s.Requests() {
		if (method == "" || r.Method == method) && strings.HasPrefix(r.Path, pathPrefix) {
			count++
		}
	}
	return count
}

// IssueSession signs in the given user without an HTTP round trip.
func (s *Server) IssueSession(email string) (*supabase.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("unknown user %s", email)
	}
	return s.newSessionLocked(u, s.TokenTTL)
}

// IssueExpiringSession issues a session whose access token expires after ttl.
func (s *Server) IssueExpiringSession(email string, ttl time.Duration) (*supabase.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("unknown user %s", email)
	}
	return s.newSessionLocked(u, ttl)
}

func (s *Server) newSessionLocked(u *user, ttl time.Duration) (*supabase.Session, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := supabase.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.id,
			Issuer:    s.URL + "/auth/v1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		Email:     u.email,
		Role:      "authenticated",
		SessionID: uuid.NewString(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.JWTSecret))
	if err != nil {
		return nil, err
	}

	refreshToken := uuid.NewString()
	s.refreshTokens[refreshToken] = strings.ToLower(u.email)

	return &supabase.Session{
		AccessToken:  accessToken,
		TokenType:    "bearer",
		ExpiresIn:    int(ttl.Seconds()),
		ExpiresAt:    expiresAt.Unix(),
		RefreshToken: refreshToken,
		User:         u.toUser(),
	}, nil
}

func (u *user) toUser() supabase.User {
	return supabase.User{
		ID:           u.id,
		Aud:          "authenticated",
		Role:         "authenticated",
		Email:        u.email,
		UserMetadata: u.metadata,
		CreatedAt:    u.createdAt,
		UpdatedAt:    u.createdAt,
	}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Auth:   r.Header.Get("Authorization"),
		Body:   string(body),
	})

	key := r.Method + " " + r.URL.Path
	if fails := s.failures[key]; len(fails) > 0 {
		s.failures[key] = fails[1:]
		writeRaw(w, fails[0].status, fails[0].body)
		return
	}

	if r.Header.Get("apikey") != s.AnonKey {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid API key"})
		return
	}

	switch {
	case r.URL.Path == "/auth/v1/signup" && r.Method == http.MethodPost:
		s.handleSignUp(w, body)
	case r.URL.Path == "/auth/v1/token" && r.Method == http.MethodPost:
		s.handleToken(w, r, body)
	case r.URL.Path == "/auth/v1/logout" && r.Method == http.MethodPost:
		s.handleLogout(w, r)
	case r.URL.Path == "/auth/v1/user" && r.Method == http.MethodGet:
		s.handleUser(w, r)
	case strings.HasPrefix(r.URL.Path, "/rest/v1/"):
		s.handleRest(w, r, strings.TrimPrefix(r.URL.Path, "/rest/v1/"), body)
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "not found"})
	}
}

func (s *Server) handleSignUp(w http.ResponseWriter, body []byte) {
	var params struct {
		Email    string         `json:"email"`
		Password string         `json:"password"`
		Data     map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &params); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": 400, "error_code": "bad_json", "msg": err.Error()})
		return
	}
	if _, exists := s.users[strings.ToLower(params.Email)]; exists {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"code": 422, "error_code": "user_already_exists", "msg": "User already registered"})
		return
	}
	if len(params.Password) < 6 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"code": 422, "error_code": "weak_password", "msg": "Password should be at least 6 characters."})
		return
	}

	u := s.addUserLocked(params.Email, params.Password, params.Data)
	if s.RequireEmailConfirmation {
		writeJSON(w, http.StatusOK, u.toUser())
		return
	}

	session, err := s.newSessionLocked(u, s.TokenTTL)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"msg": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request, body []byte) {
	switch r.URL.Query().Get("grant_type") {
	case "password":
		var params struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.Unmarshal(body, &params)
		u, ok := s.users[strings.ToLower(params.Email)]
		if !ok || u.password != params.Password {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant", "error_description": "Invalid login credentials"})
			return
		}
		session, err := s.newSessionLocked(u, s.TokenTTL)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"msg": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, session)
	case "refresh_token":
		var params struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = json.Unmarshal(body, &params)
		email, ok := s.refreshTokens[params.RefreshToken]
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]any{"code": 400, "error_code": "refresh_token_not_found", "msg": "Invalid Refresh Token: Refresh Token Not Found"})
			return
		}
		delete(s.refreshTokens, params.RefreshToken)
		session, err := s.newSessionLocked(s.users[email], s.TokenTTL)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"msg": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, session)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": 400, "error_code": "validation_failed", "msg": "unsupported grant_type"})
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearer(r)
	if _, err := s.userFromTokenLocked(token); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 401, "error_code": "bad_jwt", "msg": "invalid JWT"})
		return
	}
	s.revoked[token] = true
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.userFromTokenLocked(bearer(r))
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 401, "error_code": "bad_jwt", "msg": "invalid JWT"})
		return
	}
	writeJSON(w, http.StatusOK, u.toUser())
}

func (s *Server) userFromTokenLocked(token string) (*user, error) {
	if token == "" || s.revoked[token] {
		return nil, fmt.Errorf("no valid token")
	}
	claims, err := supabase.ParseAccessToken(token, s.JWTSecret)
	if err != nil {
		return nil, err
	}
	for _, u := range s.users {
		if u.id == claims.Subject {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %s not found", claims.Subject)
}

func (s *Server) handleRest(w http.ResponseWriter, r *http.Request, table string, body []byte) {
	token := bearer(r)
	var uid string
	if token != s.AnonKey {
		u, err := s.userFromTokenLocked(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"code": "PGRST301", "message": "JWT expired or invalid"})
			return
		}
		uid = u.id
	}

	filters, or, order := parseQuery(r)

	switch r.Method {
	case http.MethodGet:
		rows := s.filterLocked(table, filters, or)
		sortRows(rows, order)
		if r.Header.Get("Accept") == "application/vnd.pgrst.object+json" {
			if len(rows) != 1 {
				writeJSON(w, http.StatusNotAcceptable, map[string]any{
					"code":    "PGRST116",
					"message": "JSON object requested, multiple (or no) rows returned",
					"details": fmt.Sprintf("The result contains %d rows", len(rows)),
				})
				return
			}
			writeJSON(w, http.StatusOK, rows[0])
			return
		}
		writeJSON(w, http.StatusOK, rows)
	case http.MethodPost:
		if uid == "" {
			writeRLSViolation(w, table)
			return
		}
		s.insertLocked(w, table, body, uid)
	case http.MethodPatch:
		if uid == "" {
			writeRLSViolation(w, table)
			return
		}
		var values map[string]any
		if err := json.Unmarshal(body, &values); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"code": "PGRST102", "message": err.Error()})
			return
		}
		var updated []map[string]any
		for _, row := range s.tables[table] {
			if !matchesAll(row, filters, or) {
				continue
			}
			if table == "profiles" && row["id"] != uid {
				continue
			}
			for k, v := range values {
				row[k] = v
			}
			row["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)
			updated = append(updated, row)
		}
		if r.Header.Get("Accept") == "application/vnd.pgrst.object+json" {
			if len(updated) != 1 {
				writeJSON(w, http.StatusNotAcceptable, map[string]any{"code": "PGRST116", "message": "JSON object requested, multiple (or no) rows returned"})
				return
			}
			writeJSON(w, http.StatusOK, updated[0])
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if uid == "" {
			writeRLSViolation(w, table)
			return
		}
		var kept []map[string]any
		var deletedIDs []any
		for _, row := range s.tables[table] {
			if matchesAll(row, filters, or) {
				deletedIDs = append(deletedIDs, row["id"])
				continue
			}
			kept = append(kept, row)
		}
		s.tables[table] = kept
		if table == "workouts" {
			s.cascadeLocked("workout_exercises", "workout_id", deletedIDs)
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"message": "method not allowed"})
	}
}

func (s *Server) insertLocked(w http.ResponseWriter, table string, body []byte, uid string) {
	var rows []map[string]any
	if strings.HasPrefix(strings.TrimSpace(string(body)), "[") {
		if err := json.Unmarshal(body, &rows); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"code": "PGRST102", "message": err.Error()})
			return
		}
	} else {
		var row map[string]any
		if err := json.Unmarshal(body, &row); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"code": "PGRST102", "message": err.Error()})
			return
		}
		rows = append(rows, row)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, row := range rows {
		if table == "workouts" {
			if createdBy, _ := row["created_by"].(string); createdBy != uid {
				writeRLSViolation(w, table)
				return
			}
		}
		if table == "workout_exercises" {
			if !s.existsLocked("workouts", row["workout_id"]) {
				writeJSON(w, http.StatusConflict, map[string]any{
					"code":    "23503",
					"message": `insert or update on table "workout_exercises" violates foreign key constraint "workout_exercises_workout_id_fkey"`,
				})
				return
			}
		}
		if _, ok := row["id"]; !ok {
			row["id"] = uuid.NewString()
		}
		if _, ok := row["created_at"]; !ok {
			row["created_at"] = now
		}
		if table != "workout_exercises" {
			if _, ok := row["updated_at"]; !ok {
				row["updated_at"] = now
			}
		}
	}

	s.tables[table] = append(s.tables[table], rows...)
	writeJSON(w, http.StatusCreated, rows)
}

func (s *Server) existsLocked(table string, id any) bool {
	for _, row := range s.tables[table] {
		if row["id"] == id {
			return true
		}
	}
	return false
}

func (s *Server) cascadeLocked(table, column string, ids []any) {
	var kept []map[string]any
	for _, row := range s.tables[table] {
		removed := false
		for _, id := range ids {
			if row[column] == id {
				removed = true
				break
			}
		}
		if !removed {
			kept = append(kept, row)
		}
	}
	s.tables[table] = kept
}

func (s *Server) filterLocked(table string, filters []filter, or []filter) []map[string]any {
	rows := make([]map[string]any, 0)
	for _, row := range s.tables[table] {
		if matchesAll(row, filters, or) {
			rows = append(rows, row)
		}
	}
	return rows
}

type filter struct {
	column string
	op     string
	value  string
}

func parseQuery(r *http.Request) (filters []filter, or []filter, order []string) {
	for key, values := range r.URL.Query() {
		for _, v := range values {
			switch key {
			case "select", "limit":
			case "order":
				order = append(order, strings.Split(v, ",")...)
			case "or":
				for _, part := range splitTopLevel(strings.TrimSuffix(strings.TrimPrefix(v, "("), ")")) {
					pieces := strings.SplitN(part, ".", 3)
					if len(pieces) == 3 {
						or = append(or, filter{column: pieces[0], op: pieces[1], value: unquote(pieces[2])})
					}
				}
			default:
				op, value, _ := strings.Cut(v, ".")
				filters = append(filters, filter{column: key, op: op, value: value})
			}
		}
	}
	return filters, or, order
}

func matchesAll(row map[string]any, filters []filter, or []filter) bool {
	for _, f := range filters {
		if !matches(row, f) {
			return false
		}
	}
	if len(or) == 0 {
		return true
	}
	for _, f := range or {
		if matches(row, f) {
			return true
		}
	}
	return false
}

func matches(row map[string]any, f filter) bool {
	val := row[f.column]
	switch f.op {
	case "eq":
		return val != nil && fmt.Sprint(val) == unquote(f.value)
	case "ilike":
		s, ok := val.(string)
		if !ok {
			return false
		}
		return likeRegexp(unquote(f.value)).MatchString(s)
	case "cs":
		arr, ok := val.([]any)
		if !ok {
			return false
		}
		inner := strings.TrimSuffix(strings.TrimPrefix(f.value, "{"), "}")
		for _, want := range splitTopLevel(inner) {
			want = unquote(want)
			found := false
			for _, have := range arr {
				if fmt.Sprint(have) == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func likeRegexp(pattern string) *regexp.Regexp {
	var sb strings.Builder
	sb.WriteString("(?is)^")
	escaped := false
	for _, r := range pattern {
		if escaped {
			sb.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '*', '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.MustCompile(sb.String())
}

func sortRows(rows []map[string]any, order []string) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range order {
			col, dir, _ := strings.Cut(o, ".")
			a, b := fmt.Sprint(rows[i][col]), fmt.Sprint(rows[j][col])
			if a == b {
				continue
			}
			if dir == "desc" {
				return a > b
			}
			return a < b
		}
		return false
	})
}

// splitTopLevel splits on commas outside double quotes.
func splitTopLevel(s string) []string {
	var parts []string
	var cur strings.Builder
	inQuotes, escaped := false, false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

func unquote(v string) string {
	if len(v) < 2 || !strings.HasPrefix(v, `"`) || !strings.HasSuffix(v, `"`) {
		return v
	}
	v = v[1 : len(v)-1]
	v = strings.ReplaceAll(v, `\"`, `"`)
	return strings.ReplaceAll(v, `\\`, `\`)
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func writeRLSViolation(w http.ResponseWriter, table string) {
	writeJSON(w, http.StatusForbidden, map[string]any{
		"code":    "42501",
		"message": fmt.Sprintf("new row violates row-level security policy for table %q", table),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, _ := json.Marshal(v)
	writeRaw(w, status, string(b))
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
