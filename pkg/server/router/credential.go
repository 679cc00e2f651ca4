package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	credmodel "github.com/kube-credential/credential-service/internal/credential"
	"github.com/kube-credential/credential-service/pkg/server/framework"
	"github.com/kube-credential/credential-service/pkg/service/credential"
	svcframework "github.com/kube-credential/credential-service/pkg/service/framework"
)

const IDParam = "id"

type CredentialRouter struct {
	service *credential.Service
}

func NewCredentialRouter(s svcframework.Service) (*CredentialRouter, error) {
	if s == nil {
		return nil, errors.New("service cannot be nil")
	}
	credService, ok := s.(*credential.Service)
	if !ok {
		return nil, fmt.Errorf("could not create credential router with service type: %s", s.Type())
	}
	return &CredentialRouter{service: credService}, nil
}

// IssueCredential issues the submitted credential, or returns the existing
// record when the id has been issued before. 201 on a fresh issuance, 200 on
// a repeat, 400 when the credential fails shape validation.
func (cr CredentialRouter) IssueCredential(c *gin.Context) {
	var request credmodel.Credential
	if err := framework.Decode(c.Request, &request); err != nil {
		framework.LoggingRespondError(c, err, "Invalid credential data", http.StatusBadRequest)
		return
	}

	resp, err := cr.service.IssueCredential(c, credential.IssueCredentialRequest{Credential: request})
	if err != nil {
		var validationErr *credmodel.ValidationError
		if errors.As(err, &validationErr) {
			framework.LoggingRespondError(c, validationErr, "Invalid credential data", http.StatusBadRequest)
			return
		}
		framework.LoggingRespondError(c, err, "Failed to issue credential", http.StatusInternalServerError)
		return
	}

	statusCode := http.StatusCreated
	if resp.AlreadyIssued {
		statusCode = http.StatusOK
	}
	framework.Respond(c, resp.Message, resp.Credential, statusCode)
}

// GetCredential returns the issued record for the id in the path, 404 when
// it was never issued.
func (cr CredentialRouter) GetCredential(c *gin.Context) {
	id := framework.GetParam(c, IDParam)
	if id == nil {
		framework.LoggingRespondErrMsg(c, "Missing credential ID in request parameters", "Credential ID is required", http.StatusBadRequest)
		return
	}

	resp, err := cr.service.GetCredential(c, credential.GetCredentialRequest{ID: *id})
	if err != nil {
		if errors.Is(err, credential.ErrCredentialNotFound) {
			framework.LoggingRespondErrMsg(c, fmt.Sprintf("No credential found with ID: %s", *id), "Credential not found", http.StatusNotFound)
			return
		}
		framework.LoggingRespondError(c, err, "Failed to retrieve credential", http.StatusInternalServerError)
		return
	}
	framework.Respond(c, "Credential retrieved successfully", resp.Credential, http.StatusOK)
}

// ListCredentials returns every issued credential, most-recent-first.
func (cr CredentialRouter) ListCredentials(c *gin.Context) {
	resp, err := cr.service.ListCredentials(c)
	if err != nil {
		framework.LoggingRespondError(c, err, "Failed to retrieve credentials", http.StatusInternalServerError)
		return
	}
	framework.Respond(c, "Credentials retrieved successfully", resp.Credentials, http.StatusOK)
}
