package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/aegisd/aegis/internal/auth"
	"github.com/aegisd/aegis/internal/config"
	"github.com/aegisd/aegis/internal/crypto"
	"github.com/aegisd/aegis/internal/database"
	"github.com/aegisd/aegis/internal/handler"
	"github.com/aegisd/aegis/internal/logger"
	"github.com/aegisd/aegis/internal/middleware"
	"github.com/aegisd/aegis/internal/model"
	"github.com/aegisd/aegis/internal/repository"
	"github.com/aegisd/aegis/internal/service"
)

func newTestServer(t *testing.T) (http.Handler, *service.AuthService) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	rdb := database.NewRedisFromClient(client)

	cfg := config.Default()
	cfg.Security.Tokens.SigningKey = "test-signing-key-test-signing-key"
	cfg.Security.Password.Argon2Memory = 8 * 1024
	cfg.Security.Password.Argon2Iterations = 1
	cfg.Security.Password.Argon2Parallelism = 1

	log := logger.NewNop()

	identityRepo := repository.NewIdentityRepository(rdb)
	sessionRepo := repository.NewSessionRepository(rdb)
	eventRepo := repository.NewEventRepository(rdb, cfg.Security.Events.MaxEvents)
	permRepo := repository.NewPermissionRepository(rdb)
	windowRepo := repository.NewWindowRepository(rdb)

	tokenSvc, err := auth.NewTokenService(cfg.Security.Tokens)
	require.NoError(t, err)
	cipher, err := crypto.NewCipher(config.EncryptionConfig{MasterKey: "test-master-key", KDFSalt: "test.kdf.v1"})
	require.NoError(t, err)

	authzSvc := service.NewAuthzService(permRepo, log)
	require.NoError(t, authzSvc.Seed(t.Context(), config.PermissionSeed()))

	authSvc := service.NewAuthService(identityRepo, sessionRepo, eventRepo, tokenSvc, cipher, nil, cfg, log)
	monitorSvc := service.NewMonitorService(windowRepo, eventRepo, nil, cfg.Security.Threat, log)

	h := handler.New(rdb, log, cfg, authSvc, authzSvc, monitorSvc)
	mw := middleware.New(authSvc, authzSvc, monitorSvc, log)

	return New(h, mw, log), authSvc
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "203.0.113.10")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_RegisterLoginMe(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "Str0ng!Passw0rd123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice",
		"password": "Str0ng!Passw0rd123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var pair struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		TokenType    string `json:"tokenType"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	require.Equal(t, "Bearer", pair.TokenType)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/identities/me", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var me model.Identity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	require.Equal(t, "alice", me.Username)
	require.NotContains(t, rec.Body.String(), "passwordHash")
}

func TestRouter_LoginFailures(t *testing.T) {
	router, _ := newTestServer(t)

	doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "Str0ng!Passw0rd123",
	})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice", "password": "Wr0ng!Passw0rd123",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_ProtectedRoutesRequireAuth(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/identities/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/identities/me", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_AdminRoutesRequirePermission(t *testing.T) {
	router, authSvc := newTestServer(t)
	ctx := t.Context()

	_, err := authSvc.Register(ctx, service.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "Str0ng!Passw0rd123",
	})
	require.NoError(t, err)
	_, err = authSvc.Register(ctx, service.RegisterRequest{
		Username: "root", Email: "root@example.com", Password: "Str0ng!Passw0rd123", Role: model.RoleAdmin,
	})
	require.NoError(t, err)

	userPair, err := authSvc.Authenticate(ctx, service.AuthenticateRequest{Username: "alice", Password: "Str0ng!Passw0rd123"})
	require.NoError(t, err)
	adminPair, err := authSvc.Authenticate(ctx, service.AuthenticateRequest{Username: "root", Password: "Str0ng!Passw0rd123"})
	require.NoError(t, err)

	// A plain user lacks security:manage
	rec := doJSON(t, router, http.MethodGet, "/api/v1/admin/events", userPair.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/admin/events", adminPair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/admin/threats/bad-ips", adminPair.AccessToken, map[string]string{
		"ipAddress": "198.51.100.66",
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_LogoutInvalidatesToken(t *testing.T) {
	router, authSvc := newTestServer(t)

	_, err := authSvc.Register(t.Context(), service.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "Str0ng!Passw0rd123",
	})
	require.NoError(t, err)
	pair, err := authSvc.Authenticate(t.Context(), service.AuthenticateRequest{Username: "alice", Password: "Str0ng!Passw0rd123"})
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/logout", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/identities/me", pair.AccessToken, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"redis":"healthy"`)

	rec = doJSON(t, router, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
