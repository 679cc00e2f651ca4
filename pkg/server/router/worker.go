package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kube-credential/credential-service/internal/worker"
	"github.com/kube-credential/credential-service/pkg/server/framework"
)

// Worker exposes the process identity for introspection.
func Worker(identity worker.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		framework.Respond(c, "Worker information retrieved successfully", identity, http.StatusOK)
	}
}
