package framework

import (
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Response is the envelope every endpoint replies with, success or not.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Respond sends a success envelope with the given message and payload.
func Respond(c *gin.Context, message string, data any, statusCode int) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// RespondOutcome sends an envelope whose success flag mirrors a domain
// outcome rather than transport health, such as a verification verdict.
func RespondOutcome(c *gin.Context, success bool, message string, data any, statusCode int) {
	c.JSON(statusCode, Response{
		Success: success,
		Message: message,
		Data:    data,
	})
}

// LoggingRespondError logs the error and sends an error envelope back to the
// requester with the given message; the error text lands in the envelope's
// error field.
func LoggingRespondError(c *gin.Context, err error, message string, statusCode int) {
	logrus.WithError(err).Error(message)
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Error:   err.Error(),
	})
}

// LoggingRespondErrMsg is LoggingRespondError for errors that only exist as a
// message.
func LoggingRespondErrMsg(c *gin.Context, errMsg string, message string, statusCode int) {
	LoggingRespondError(c, errors.New(errMsg), message, statusCode)
}
