package logger

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fintelhq/fintel/internal/observability/obscontext"
)

const requestIDHeader = "X-Request-ID"

// ErrorClassifier maps a request error to (error_type, error_code) fields.
type ErrorClassifier func(err error) (string, string)

// MiddlewareConfig configures the request logging middleware.
type MiddlewareConfig struct {
	Debug           bool
	ErrorClassifier ErrorClassifier
}

// GinMiddleware logs each HTTP request with correlation fields and timing.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := ensureRequestID(c)
		ctx := obscontext.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(requestIDHeader, requestID)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int("bytes", normalizeBytes(c.Writer.Size())),
		}

		var requestErr error
		if len(c.Errors) > 0 {
			requestErr = c.Errors.Last().Err
			fields = append(fields, zap.Error(requestErr))
			if cfg.ErrorClassifier != nil {
				errType, errCode := cfg.ErrorClassifier(requestErr)
				fields = append(fields,
					zap.String("error_type", errType),
					zap.String("error_code", errCode),
				)
			}
		}

		logRequest(FromContext(ctx), cfg, route, c.Writer.Status(), requestErr, fields)
	}
}

func ensureRequestID(c *gin.Context) string {
	requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return requestID
}

func logRequest(log *zap.Logger, cfg MiddlewareConfig, route string, status int, err error, fields []zap.Field) {
	switch {
	case status >= 500 || err != nil:
		log.Error("http.request", fields...)
	case status >= 400:
		log.Warn("http.request", fields...)
	case isQuiet(route):
		log.Debug("http.request", fields...)
	case cfg.Debug:
		log.Debug("http.request", fields...)
	default:
		log.Info("http.request", fields...)
	}
}

// isQuiet reports routes that are scraped or polled and would drown the log.
func isQuiet(route string) bool {
	return route == "/metrics" || route == "/health"
}

func normalizeBytes(size int) int {
	if size < 0 {
		return 0
	}
	return size
}
