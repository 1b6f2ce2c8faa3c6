package app_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"productapi/internal/app"
	"productapi/internal/config"
	"productapi/internal/repositories"
	"productapi/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestApp(t *testing.T, authEnabled bool) *app.App {
	t.Helper()
	cfg := &config.Config{
		Server:   config.ServerConfig{Port: ":0", Env: "test"},
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		Auth:     config.AuthConfig{Enabled: authEnabled, JWTSecret: "test_jwt_secret", TokenTTL: time.Hour},
	}
	a, err := app.New(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func send(t *testing.T, a *app.App, method, path, body, token string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.Fiber.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var payload map[string]any
	_ = json.Unmarshal(raw, &payload)
	return resp, payload
}

func TestHealth(t *testing.T) {
	a := newTestApp(t, true)

	resp, payload := send(t, a, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", payload["status"])
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}

func TestEndToEnd_WithAuth(t *testing.T) {
	a := newTestApp(t, true)
	credentials := `{"email":"user@example.com","password":"password123"}`

	resp, _ := send(t, a, http.MethodGet, "/api/products", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = send(t, a, http.MethodPost, "/api/register", credentials, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, payload := send(t, a, http.MethodPost, "/api/login_check", credentials, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := payload["token"].(string)

	resp, payload = send(t, a, http.MethodPost, "/api/products",
		`{"name":"Test Product","description":"desc","price":"10.99"}`, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	path := fmt.Sprintf("/api/products/%d", int(payload["id"].(float64)))

	resp, payload = send(t, a, http.MethodGet, path, "", token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Test Product", payload["name"])

	resp, payload = send(t, a, http.MethodPut, path, `{"name":"Updated"}`, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Updated", payload["name"])
	assert.Equal(t, "desc", payload["description"])
	assert.Equal(t, "10.99", payload["price"])

	resp, _ = send(t, a, http.MethodDelete, path, "", token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = send(t, a, http.MethodGet, path, "", token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNew_AssignsFreshIDs(t *testing.T) {
	a := newTestApp(t, false)

	seen := make(map[float64]bool)
	for i := 0; i < 5; i++ {
		resp, payload := send(t, a, http.MethodPost, "/api/products",
			fmt.Sprintf(`{"name":"Product %d","description":null}`, i), "")
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		id := payload["id"].(float64)
		assert.False(t, seen[id], "id %v reused", id)
		seen[id] = true
	}
}

func TestNewHTTP_LogsPanickedRequests(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)
	httpApp := app.NewHTTP(log, app.Services{
		Products: services.NewProductService(repositories.NewMemoryProductRepository(), nil, log),
		Auth:     services.NewAuthService(repositories.NewMemoryUserRepository(), "test_jwt_secret", time.Hour, log),
	})
	httpApp.Get("/panic", func(c *fiber.Ctx) error {
		panic("handler blew up")
	})

	resp, err := httpApp.Test(httptest.NewRequest(http.MethodGet, "/panic", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	completed := logs.FilterMessage("Request completed").All()
	require.Len(t, completed, 1)
	fields := completed[0].ContextMap()
	assert.Equal(t, "/panic", fields["path"])
	assert.EqualValues(t, http.StatusInternalServerError, fields["status"])
	assert.NotEmpty(t, fields["request_id"])
}
