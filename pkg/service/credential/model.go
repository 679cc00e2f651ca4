package credential

import (
	"github.com/kube-credential/credential-service/internal/credential"
)

type IssueCredentialRequest struct {
	Credential credential.Credential
}

type IssueCredentialResponse struct {
	Credential credential.IssuedCredential
	// AlreadyIssued is true when the id had been issued before and the
	// existing record was returned untouched.
	AlreadyIssued bool
	Message       string
}

type GetCredentialRequest struct {
	ID string
}

type GetCredentialResponse struct {
	Credential credential.IssuedCredential
}

type ListCredentialsResponse struct {
	// Credentials are ordered most-recently-created first.
	Credentials []credential.IssuedCredential
}
