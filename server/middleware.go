package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/delvitaw/obesity/pkg/log"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDCtxKey = "request_id"

// requestID reuses the caller's id or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDCtxKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []interface{}{
			log.RequestIDKey, c.GetString(requestIDCtxKey),
			log.MethodKey, c.Request.Method,
			log.RouteKey, c.FullPath(),
			log.StatusKey, c.Writer.Status(),
			log.ClientIPKey, c.ClientIP(),
			log.DurationMsKey, time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.String())
		}
		if c.Writer.Status() >= 500 {
			logger.Error("Request", fields...)
			return
		}
		logger.Info("Request", fields...)
	}
}
