// Package middlewares holds gin middleware shared by the HTTP server.
package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger logs each request. Successful requests go to debug so regular
// scrapes stay out of the default log; client errors are info and server
// errors warn.
func ZapLogger(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		uri := c.Request.RequestURI

		c.Next()

		status := c.Writer.Status()
		level := zapcore.DebugLevel
		switch {
		case status >= 500:
			level = zapcore.WarnLevel
		case status >= 400:
			level = zapcore.InfoLevel
		}
		if ce := l.Check(level, "http_request"); ce != nil {
			ce.Write(
				zap.String("method", method),
				zap.String("uri", uri),
				zap.String("remote", c.ClientIP()),
				zap.Int("status", status),
				zap.Int("size", max(c.Writer.Size(), 0)),
				zap.Duration("duration", time.Since(start)),
			)
		}
	}
}
