package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"thelook/api/models"
	"thelook/api/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func protectedRouter(t *testing.T) (*gin.Engine, *utils.JWTManager) {
	t.Helper()
	jwtManager, err := utils.NewJWTManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}
	r := gin.New()
	r.Use(AuthRequired(jwtManager, "service-key", quietLogger()))
	r.GET("/private", func(c *gin.Context) {
		id, _ := c.Get(ContextUserID)
		c.JSON(http.StatusOK, gin.H{"user_id": id})
	})
	return r, jwtManager
}

func TestAuthRequired(t *testing.T) {
	r, jwtManager := protectedRouter(t)
	token, err := jwtManager.Generate(&models.User{ID: 7, Email: "ann@example.com"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	tests := []struct {
		name   string
		setup  func(req *http.Request)
		status int
	}{
		{"no credentials", func(req *http.Request) {}, http.StatusUnauthorized},
		{"bearer token", func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK},
		{"cookie token", func(req *http.Request) { req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token}) }, http.StatusOK},
		{"bad token", func(req *http.Request) { req.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"api key", func(req *http.Request) { req.Header.Set("X-API-KEY", "service-key") }, http.StatusOK},
		{"wrong api key", func(req *http.Request) { req.Header.Set("X-API-KEY", "guess") }, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			tt.setup(req)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestAuthRequiredEmptyAPIKeyDisablesKeyAuth(t *testing.T) {
	jwtManager, _ := utils.NewJWTManager("test-secret", time.Hour)
	r := gin.New()
	r.Use(AuthRequired(jwtManager, "", quietLogger()))
	r.GET("/private", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("X-API-KEY", "")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware("http://dash.local"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://dash.local" {
		t.Fatalf("unexpected origin %q", got)
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(quietLogger()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if got := rr.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Fatalf("expected incoming request id echoed, got %q", got)
	}
}
