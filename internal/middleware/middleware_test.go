package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/session"
)

type sessionFunc func(ctx context.Context) (int64, error)

func (f sessionFunc) CurrentUserID(ctx context.Context) (int64, error) { return f(ctx) }

func engine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/me", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"id": UserID(c)}) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func serve(r *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRequireSession(t *testing.T) {
	tests := []struct {
		name   string
		fn     sessionFunc
		status int
	}{
		{"signed in", func(context.Context) (int64, error) { return 42, nil }, http.StatusOK},
		{"signed out", func(context.Context) (int64, error) { return 0, session.ErrNoSession }, http.StatusUnauthorized},
		{"store down", func(context.Context) (int64, error) { return 0, errors.New("redis down") }, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(engine(RequireSession(tt.fn)), http.MethodGet, "/me", nil)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"id":42}`, w.Body.String())
			}
		})
	}
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := engine(Logger(zap.New(core), "/health"))

	w := serve(r, http.MethodGet, "/me", http.Header{HeaderRequestID: {"req-1"}})
	assert.Equal(t, "req-1", w.Header().Get(HeaderRequestID))
	w = serve(r, http.MethodGet, "/boom", nil)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	serve(r, http.MethodGet, "/health", nil)

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
		assert.Equal(t, zap.WarnLevel, entries[1].Level)
	}
}

func TestCORS(t *testing.T) {
	r := engine(CORS("http://localhost:8081, http://localhost:19006"))

	w := serve(r, http.MethodOptions, "/me", http.Header{"Origin": {"http://localhost:8081"}})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:8081", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(r, http.MethodOptions, "/me", http.Header{"Origin": {"http://evil.test"}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(r, http.MethodGet, "/health", http.Header{"Origin": {"http://evil.test"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(engine(CORS("*")), http.MethodGet, "/health", nil)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
