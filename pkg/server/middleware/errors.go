package middleware

import (
	"net/http"
	"os"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kube-credential/credential-service/pkg/server/framework"
)

// Errors handles errors coming out of the call stack. It detects safe
// application errors (aka SafeError) that are used to respond to the
// requester in a normalized way. Errors the handler did not respond to
// become a generic 500. Shutdown-worthy errors signal the process.
func Errors(shutdown chan os.Signal) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		ginErrs := c.Errors.ByType(gin.ErrorTypeAny)
		if len(ginErrs) == 0 {
			return
		}

		for _, e := range ginErrs {
			if framework.IsShutdown(e.Err) {
				logrus.WithError(e.Err).Error("unsafe error, signalling shutdown")
				shutdown <- syscall.SIGTERM
				return
			}
		}

		logrus.Errorf("request errors: %v", ginErrs)
		if c.Writer.Written() {
			return
		}

		var safeErr *framework.SafeError
		if errors.As(ginErrs[0].Err, &safeErr) {
			c.JSON(safeErr.StatusCode, framework.Response{
				Success: false,
				Message: safeErr.Error(),
				Error:   safeErr.FieldErrors(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, framework.Response{
			Success: false,
			Message: http.StatusText(http.StatusInternalServerError),
		})
	}
}
