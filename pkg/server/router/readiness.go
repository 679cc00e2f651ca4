package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kube-credential/credential-service/pkg/server/framework"
	svcframework "github.com/kube-credential/credential-service/pkg/service/framework"
)

type GetReadinessResponse struct {
	Status          svcframework.Status                       `json:"status"`
	ServiceStatuses map[svcframework.Type]svcframework.Status `json:"serviceStatuses"`
}

// Readiness runs application specific checks to see if all the relied upon
// services are healthy. Responds with a 503 if not ready.
func Readiness(services []svcframework.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		numServices := len(services)
		readyServices := 0
		statuses := make(map[svcframework.Type]svcframework.Status)
		for _, s := range services {
			status := s.Status()
			statuses[s.Type()] = status
			if status.Status == svcframework.StatusReady {
				readyServices++
			}
		}

		status := svcframework.Status{
			Status:  svcframework.StatusReady,
			Message: "all services ready",
		}
		statusCode := http.StatusOK
		if readyServices < numServices {
			status = svcframework.Status{
				Status:  svcframework.StatusNotReady,
				Message: fmt.Sprintf("out of [%d] services, [%d] are ready", numServices, readyServices),
			}
			statusCode = http.StatusServiceUnavailable
		}

		framework.RespondOutcome(c, statusCode == http.StatusOK, status.Message, GetReadinessResponse{
			Status:          status,
			ServiceStatuses: statuses,
		}, statusCode)
	}
}
