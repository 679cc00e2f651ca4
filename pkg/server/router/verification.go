package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	credmodel "github.com/kube-credential/credential-service/internal/credential"
	"github.com/kube-credential/credential-service/pkg/server/framework"
	svcframework "github.com/kube-credential/credential-service/pkg/service/framework"
	"github.com/kube-credential/credential-service/pkg/service/verification"
)

const CredentialIDParam = "credentialId"

type VerificationRouter struct {
	service *verification.Service
}

func NewVerificationRouter(s svcframework.Service) (*VerificationRouter, error) {
	if s == nil {
		return nil, errors.New("service cannot be nil")
	}
	verificationService, ok := s.(*verification.Service)
	if !ok {
		return nil, fmt.Errorf("could not create verification router with service type: %s", s.Type())
	}
	return &VerificationRouter{service: verificationService}, nil
}

// VerifyCredentialRequest wraps a candidate credential. Callers may also
// submit the credential as the bare request body.
type VerifyCredentialRequest struct {
	Credential *credmodel.Credential `json:"credential,omitempty"`
}

// VerifyCredential checks the submitted candidate against the issuance
// authority. Always a 200 for well-formed input; the envelope's success flag
// mirrors the verification verdict. 400 only for structurally invalid input.
func (vr VerificationRouter) VerifyCredential(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		framework.LoggingRespondError(c, err, "Invalid credential data", http.StatusBadRequest)
		return
	}
	submitted, err := decodeCandidate(body)
	if err != nil {
		framework.LoggingRespondError(c, err, "Invalid credential data", http.StatusBadRequest)
		return
	}

	result, err := vr.service.VerifyCredential(c, submitted)
	if err != nil {
		var validationErr *credmodel.ValidationError
		if errors.As(err, &validationErr) {
			framework.LoggingRespondError(c, validationErr, "Invalid credential data", http.StatusBadRequest)
			return
		}
		framework.LoggingRespondError(c, err, "Failed to verify credential", http.StatusInternalServerError)
		return
	}
	framework.RespondOutcome(c, result.IsValid, result.Message, result, http.StatusOK)
}

// GetHistory returns past verification attempts, optionally filtered to one
// credential id via the credentialId query parameter.
func (vr VerificationRouter) GetHistory(c *gin.Context) {
	var credentialID string
	if q := framework.GetQueryValue(c, CredentialIDParam); q != nil {
		credentialID = *q
	}

	history, err := vr.service.GetHistory(c, credentialID)
	if err != nil {
		framework.LoggingRespondError(c, err, "Failed to retrieve verification history", http.StatusInternalServerError)
		return
	}
	framework.Respond(c, "Verification history retrieved successfully", history, http.StatusOK)
}

// decodeCandidate accepts both a bare credential body and one wrapped under
// a "credential" key.
func decodeCandidate(body []byte) (credmodel.Credential, error) {
	var wrapper VerifyCredentialRequest
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Credential != nil {
		return *wrapper.Credential, nil
	}
	var bare credmodel.Credential
	if err := json.Unmarshal(body, &bare); err != nil {
		return credmodel.Credential{}, errors.Wrap(err, "malformed request body")
	}
	return bare, nil
}
