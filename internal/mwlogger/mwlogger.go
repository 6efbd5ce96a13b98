// Package mwlogger provides UUID-logging to every request and carries the scoped logger through context
package mwlogger

import (
	"context"
	"net/http"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/helpers"
	"github.com/wb-go/wbf/zlog"
)

type loggerWithRequestID struct{}

const RequestIDHeader = "X-Request-Id"

// NewMWLogger - обёртка для логирования запросов с присвоением UUID каждому запросу и пробросу логгера в контекст запроса
func NewMWLogger(next *ginext.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Fetching/generating UUID for request
		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" {
			reqID = helpers.CreateUUID()
		}
		w.Header().Set(RequestIDHeader, reqID)

		// Creating logger
		logger := zlog.Logger.With().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		// Putting logger to context
		r = r.WithContext(WithLogger(r.Context(), logger))

		// Running handler
		next.ServeHTTP(w, r)
	})
}

// WithLogger кладет логгер в контекст; воркер так помечает логи идентификатором задачи
func WithLogger(ctx context.Context, logger zlog.Zerolog) context.Context {
	return context.WithValue(ctx, loggerWithRequestID{}, logger)
}

// LoggerFromContext extracts logger from context - used in service-layer
func LoggerFromContext(ctx context.Context) zlog.Zerolog {
	if l, ok := ctx.Value(loggerWithRequestID{}).(zlog.Zerolog); ok {
		return l
	}
	return zlog.Logger
}
