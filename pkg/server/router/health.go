// Package router holds the HTTP handlers for both services.
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kube-credential/credential-service/internal/credential"
	"github.com/kube-credential/credential-service/internal/worker"
	"github.com/kube-credential/credential-service/pkg/server/framework"
)

const HealthOK = "healthy"

type GetHealthCheckResponse struct {
	Service   string          `json:"service"`
	Status    string          `json:"status"`
	Timestamp string          `json:"timestamp"`
	Worker    worker.Identity `json:"worker"`
}

// Health reports the service as healthy along with the worker identity
// serving the request.
func Health(serviceName string, identity worker.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		framework.Respond(c, "Service is healthy", GetHealthCheckResponse{
			Service:   serviceName,
			Status:    HealthOK,
			Timestamp: time.Now().UTC().Format(credential.TimestampLayout),
			Worker:    identity,
		}, http.StatusOK)
	}
}
