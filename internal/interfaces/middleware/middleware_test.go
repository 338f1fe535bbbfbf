package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexora/backend/internal/config"
	"github.com/nexora/backend/internal/infrastructure/metrics"
	"github.com/nexora/backend/internal/interfaces/middleware"
	"github.com/nexora/backend/pkg/auth"
	"github.com/nexora/backend/pkg/constants"
)

const secret = "test-secret"

func whoami(c *gin.Context) {
	user, _ := c.Get(constants.ContextKeyUser)
	c.JSON(http.StatusOK, user)
}

func newAuthRouter(cfg config.AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", middleware.RequireAuth(cfg), whoami)
	r.PUT("/edit", middleware.RequireAuth(cfg), middleware.RequireEditor(), whoami)
	return r
}

func token(t *testing.T, user auth.UserSession) string {
	tok, err := auth.GenerateToken(user, []byte(secret), time.Hour)
	require.NoError(t, err)
	return tok
}

func serve(r http.Handler, method, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set(constants.HeaderAuthorization, authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	r := newAuthRouter(config.AuthConfig{JWTSecret: secret})
	editor := auth.UserSession{ID: "u1", TenantID: "t1", Role: auth.RoleEditor}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"MissingHeader", "", http.StatusUnauthorized},
		{"WrongScheme", "Basic abc", http.StatusUnauthorized},
		{"GarbageToken", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"ValidToken", constants.BearerPrefix + token(t, editor), http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(r, http.MethodGet, "/me", tc.header)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), `"code":"UNAUTHORIZED"`)
			}
		})
	}

	t.Run("WrongSecret", func(t *testing.T) {
		other, err := auth.GenerateToken(editor, []byte("other"), time.Hour)
		require.NoError(t, err)
		w := serve(r, http.MethodGet, "/me", constants.BearerPrefix+other)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireAuth_Disabled(t *testing.T) {
	r := newAuthRouter(config.AuthConfig{Disabled: true, DefaultTenant: "default"})

	w := serve(r, http.MethodPut, "/edit", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tenant_id":"default"`)
}

func TestRequireEditor(t *testing.T) {
	r := newAuthRouter(config.AuthConfig{JWTSecret: secret})

	viewer := auth.UserSession{ID: "u2", TenantID: "t1", Role: auth.RoleViewer}
	w := serve(r, http.MethodPut, "/edit", constants.BearerPrefix+token(t, viewer))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"FORBIDDEN"`)

	admin := auth.UserSession{ID: "u3", TenantID: "t1", Role: auth.RoleAdmin}
	w = serve(r, http.MethodPut, "/edit", constants.BearerPrefix+token(t, admin))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Cors([]string{"https://editor.example.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://editor.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://editor.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), constants.HeaderIfMatch)
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), constants.HeaderETag)

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.New()
	r := gin.New()
	r.Use(middleware.Metrics(m))
	r.GET("/api/ivr/flows/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	serve(r, http.MethodGet, "/api/ivr/flows/abc", "")
	serve(r, http.MethodGet, "/nowhere", "")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `nexora_http_requests_total{method="GET",route="/api/ivr/flows/:id",status="418"} 1`)
	assert.Contains(t, body, `route="unmatched",status="404"`)
}
