package mwlogger

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"
)

func TestNewMWLogger_PropagatesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	engine := ginext.New(gin.TestMode)
	engine.GET("/ping", func(c *ginext.Context) {
		logger := LoggerFromContext(c.Request.Context()).Output(&buf)
		logger.Info().Msg("handled")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()

	NewMWLogger(engine).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
	require.Contains(t, buf.String(), `"request_id":"req-42"`)
	require.Contains(t, buf.String(), `"path":"/ping"`)
}

func TestNewMWLogger_GeneratesRequestID(t *testing.T) {
	engine := ginext.New(gin.TestMode)
	engine.GET("/ping", func(c *ginext.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	NewMWLogger(engine).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestLoggerFromContext_Fallback(t *testing.T) {
	var buf bytes.Buffer
	scoped := zlog.Logger.Output(&buf).With().Str("task_id", "t-1").Logger()

	ctx := WithLogger(context.Background(), scoped)
	l := LoggerFromContext(ctx)
	l.Info().Msg("x")
	require.Contains(t, buf.String(), `"task_id":"t-1"`)

	require.NotPanics(t, func() {
		l := LoggerFromContext(context.Background())
		_ = l
	})
}
