// Package middleware holds the gin middleware chain shared by both servers.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kube-credential/credential-service/pkg/server/framework"
)

// Logger logs one line per request after the handler runs: method, path,
// status, client address, and latency.
func Logger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"client":  c.ClientIP(),
			"latency": time.Since(start).String(),
		}
		if traceID, exists := c.Get(framework.TraceIDKey.String()); exists {
			fields["traceID"] = traceID
		}
		log.WithFields(fields).Info("request completed")
	}
}
