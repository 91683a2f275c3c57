package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/reminder-api/internal/handler"
	"github.com/jwalitptl/reminder-api/pkg/auth"
	apperrors "github.com/jwalitptl/reminder-api/pkg/errors"
	"github.com/jwalitptl/reminder-api/pkg/logger"
)

type stubTokens map[string]uuid.UUID

func (s stubTokens) ValidateToken(token string) (uuid.UUID, error) {
	id, ok := s[token]
	if !ok {
		return uuid.Nil, auth.ErrInvalidToken
	}
	return id, nil
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Recovery(logger.Nop()), ErrorHandler(logger.Nop()))
	r.Use(mw...)
	return r
}

func serve(r *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, handler.Response) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var resp handler.Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestRequestIDReusesSaneHeader(t *testing.T) {
	r := newEngine()
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "abc-123")
	w, _ := serve(r, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(HeaderXRequestID))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, strings.Repeat("x", maxRequestIDLength+1))
	w, _ = serve(r, req)
	_, err := uuid.Parse(w.Body.String())
	assert.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "has space")
	w, _ = serve(r, req)
	assert.NotEqual(t, "has space", w.Body.String())
}

func TestErrorHandlerRendersAppError(t *testing.T) {
	r := newEngine()
	r.GET("/", func(c *gin.Context) {
		c.Error(apperrors.NewInternal(errors.New("db down")))
	})

	w, resp := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, apperrors.ErrInternal, resp.Code)
	assert.True(t, resp.Retryable)
	assert.NotEmpty(t, resp.TraceID)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestErrorHandlerHidesPlainErrors(t *testing.T) {
	r := newEngine()
	r.GET("/", func(c *gin.Context) { c.Error(errors.New("secret detail")) })

	w, resp := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", resp.Message)
	assert.NotContains(t, w.Body.String(), "secret detail")
}

func TestRecoveryReturns500(t *testing.T) {
	r := newEngine()
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w, resp := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "error", resp.Status)
}

func TestAuthenticate(t *testing.T) {
	owner := uuid.New()
	m := NewAuthMiddleware(stubTokens{"good": owner})
	r := newEngine(m.Authenticate())
	r.GET("/", func(c *gin.Context) {
		id, ok := auth.OwnerFromContext(c.Request.Context())
		require.True(t, ok)
		c.String(http.StatusOK, id.String())
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w, _ := serve(r, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, owner.String(), w.Body.String())
			}
		})
	}
}

func TestSizeLimit(t *testing.T) {
	r := newEngine(SizeLimit(8))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w, _ := serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w, _ = serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123")))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitFallsBackToClientIP(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 1})
	r := newEngine(rl.RateLimit())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := func(ip string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		return req
	}
	w, _ := serve(r, req("10.0.0.1"))
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = serve(r, req("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	w, _ = serve(r, req("10.0.0.2"))
	assert.Equal(t, http.StatusOK, w.Code)
}
