package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffdesk/employee-api/internal/auth"
	"github.com/staffdesk/employee-api/internal/config"
	apihttp "github.com/staffdesk/employee-api/internal/http"
	"github.com/staffdesk/employee-api/internal/logging"
	"github.com/staffdesk/employee-api/internal/user"
)

// memoryStore stands in for the Postgres repository; uniqueness is enforced
// atomically, matching the unique index semantics.
type memoryStore struct {
	mu      sync.Mutex
	users   map[string]user.User
	pingErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: make(map[string]user.User)}
}

func (s *memoryStore) Create(ctx context.Context, u *user.User) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[u.Email]; exists {
		return nil, user.ErrDuplicateEmail
	}
	u.CreatedAt = time.Now()
	s.users[u.Email] = *u
	created := *u
	return &created, nil
}

func (s *memoryStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, exists := s.users[email]; exists {
		found := u
		return &found, nil
	}
	return nil, user.ErrNotFound
}

func (s *memoryStore) List(ctx context.Context) ([]user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryStore) Ping(ctx context.Context) error {
	return s.pingErr
}

func newTestServer(t *testing.T, store *memoryStore) *httptest.Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Env = "dev"
	cfg.Server.TrustedOrigins = []string{"http://localhost:3000"}

	logger := logging.NewLogger(true)
	tokenService, err := auth.NewJWTService([]byte("router-test-signing-secret"))
	require.NoError(t, err)
	hasher := auth.NewPasswordHasher(1, 16*1024, 2)

	authService := auth.NewService(store, hasher, tokenService, logger, time.Hour)
	authHandler := auth.NewHandler(authService, logger)
	authMiddleware := auth.NewMiddleware(tokenService)
	userHandler := user.NewHandler(store)

	router := apihttp.NewRouter(cfg, authHandler, authMiddleware, userHandler, store, logger)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestSignupLoginScenario(t *testing.T) {
	srv := newTestServer(t, newMemoryStore())

	// Signup
	resp := postJSON(t, srv.URL+"/api/signup", map[string]string{
		"first_name":  "Ada",
		"last_name":   "Lovelace",
		"employee_id": "E-1001",
		"email":       "a@x.com",
		"password":    "Secret123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "User registered successfully", body["message"])
	assert.NotEmpty(t, body["userId"])
	assert.Equal(t, "a@x.com", body["email"])
	assert.Equal(t, "E-1001", body["employee_id"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "password_hash")

	// Login with the right password
	resp = postJSON(t, srv.URL+"/api/login", map[string]string{
		"email":    "a@x.com",
		"password": "Secret123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, "success", body["status"])
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	token, ok := data["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)

	// Login with the wrong password
	resp = postJSON(t, srv.URL+"/api/login", map[string]string{
		"email":    "a@x.com",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Authentication failed. Please check your credentials.", body["message"])

	// Duplicate signup
	resp = postJSON(t, srv.URL+"/api/signup", map[string]string{
		"first_name":  "Grace",
		"last_name":   "Hopper",
		"employee_id": "E-2002",
		"email":       "a@x.com",
		"password":    "Other456",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, "Email already registered", body["error"])

	// The issued token opens the protected identity endpoint
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	meResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, meResp.StatusCode)
	body = decodeBody(t, meResp)
	assert.Equal(t, "a@x.com", body["email"])
}

func TestSignupRejectsInvalidEmail(t *testing.T) {
	srv := newTestServer(t, newMemoryStore())

	resp := postJSON(t, srv.URL+"/api/signup", map[string]string{
		"first_name": "Ada",
		"email":      "not-an-email",
		"password":   "Secret123",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Invalid email format", body["error"])
}

func TestLoginRejectsMissingFields(t *testing.T) {
	srv := newTestServer(t, newMemoryStore())

	for _, payload := range []map[string]string{
		{"email": "a@x.com"},
		{"password": "Secret123"},
		{},
	} {
		resp := postJSON(t, srv.URL+"/api/login", payload)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "Please provide both email and password.", body["message"])
	}
}

func TestUnknownEmailMatchesWrongPasswordResponse(t *testing.T) {
	srv := newTestServer(t, newMemoryStore())

	resp := postJSON(t, srv.URL+"/api/signup", map[string]string{
		"first_name": "Ada", "last_name": "Lovelace",
		"employee_id": "E-1001", "email": "a@x.com", "password": "Secret123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	wrongPassword := postJSON(t, srv.URL+"/api/login", map[string]string{
		"email": "a@x.com", "password": "wrong",
	})
	unknownEmail := postJSON(t, srv.URL+"/api/login", map[string]string{
		"email": "nobody@x.com", "password": "Secret123",
	})

	require.Equal(t, http.StatusUnauthorized, wrongPassword.StatusCode)
	require.Equal(t, http.StatusUnauthorized, unknownEmail.StatusCode)
	assert.Equal(t, decodeBody(t, wrongPassword), decodeBody(t, unknownEmail))
}

func TestListUsersOmitsPasswordFields(t *testing.T) {
	store := newMemoryStore()
	srv := newTestServer(t, store)

	for _, u := range []map[string]string{
		{"first_name": "Ada", "last_name": "Lovelace", "employee_id": "E-1001", "email": "a@x.com", "password": "Secret123"},
		{"first_name": "Grace", "last_name": "Hopper", "employee_id": "E-2002", "email": "g@x.com", "password": "Other456"},
	} {
		resp := postJSON(t, srv.URL+"/api/signup", u)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp, err := http.Get(srv.URL + "/api/users")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var items []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Contains(t, item, "id")
		assert.Contains(t, item, "first_name")
		assert.Contains(t, item, "employee_id")
		assert.Contains(t, item, "email")
		assert.NotContains(t, item, "password")
		assert.NotContains(t, item, "password_hash")
	}
	assert.Equal(t, "a@x.com", items[0]["email"])
	assert.Equal(t, "g@x.com", items[1]["email"])
}

func TestDBTestEndpoint(t *testing.T) {
	store := newMemoryStore()
	srv := newTestServer(t, store)

	resp, err := http.Get(srv.URL + "/api/test")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Database connection test successful.", body["message"])

	store.pingErr = errors.New("connection refused")
	resp, err = http.Get(srv.URL + "/api/test")
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, "Internal server error.", body["message"])
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, newMemoryStore())

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}
