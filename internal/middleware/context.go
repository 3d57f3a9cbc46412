package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/storelane/api/internal/constants"
	ctxutil "github.com/storelane/api/pkg/context"
	"github.com/storelane/api/pkg/logger"
)

// RequestContext seeds the request context with a request ID, client
// metadata, and the request start time, so every downstream log line
// carries them automatically.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(constants.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := c.Request.Context()
		ctx = context.WithValue(ctx, ctxutil.RequestIDKey, requestID)
		ctx = context.WithValue(ctx, ctxutil.ClientIPKey, c.ClientIP())
		ctx = context.WithValue(ctx, ctxutil.UserAgentKey, c.Request.UserAgent())
		ctx = context.WithValue(ctx, ctxutil.StartTimeKey, time.Now())

		c.Header(constants.HeaderXRequestID, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequestTimeout bounds each request's context lifetime.
func RequestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogging logs one line at request completion with the outcome.
func RequestLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		ctx := c.Request.Context()
		builder := logger.InfoWithContext(ctx, "Request completed")
		if c.Writer.Status() >= 500 {
			builder = logger.ErrorWithContext(ctx, "Request failed")
		} else if c.Writer.Status() >= 400 {
			builder = logger.WarnWithContext(ctx, "Request rejected")
		}

		builder.
			String("method", c.Request.Method).
			String("path", c.Request.URL.Path).
			Int("status_code", c.Writer.Status()).
			Int("response_size", c.Writer.Size()).
			Duration(ctxutil.GetDuration(ctx)).
			Log()
	}
}
