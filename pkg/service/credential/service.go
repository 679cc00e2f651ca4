// Package credential implements the issuance authority: it validates
// candidate credentials, attaches audit metadata, and persists each id
// exactly once.
package credential

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/kube-credential/credential-service/config"
	"github.com/kube-credential/credential-service/internal/credential"
	"github.com/kube-credential/credential-service/internal/util"
	"github.com/kube-credential/credential-service/internal/worker"
	credstorage "github.com/kube-credential/credential-service/pkg/service/credential/storage"
	svcframework "github.com/kube-credential/credential-service/pkg/service/framework"
	"github.com/kube-credential/credential-service/pkg/storage"
)

// ErrCredentialNotFound marks a lookup miss; surfaced as a 404.
var ErrCredentialNotFound = errors.New("credential not found")

type Service struct {
	config   config.IssuanceServiceConfig
	storage  *credstorage.Storage
	identity worker.Identity

	// Clock supplies issuance timestamps; swap for a mock in tests.
	Clock clock.Clock
}

func NewCredentialService(config config.IssuanceServiceConfig, db storage.ServiceStorage, identity worker.Identity) (*Service, error) {
	credentialStorage, err := credstorage.NewCredentialStorage(db)
	if err != nil {
		return nil, errors.Wrap(err, "instantiating credential storage")
	}
	return &Service{
		config:   config,
		storage:  credentialStorage,
		identity: identity,
		Clock:    clock.New(),
	}, nil
}

func (s *Service) Type() svcframework.Type {
	return svcframework.Credential
}

func (s *Service) Status() svcframework.Status {
	if s.storage == nil || !s.storage.IsOpen() {
		return svcframework.Status{
			Status:  svcframework.StatusNotReady,
			Message: "storage not available",
		}
	}
	return svcframework.Status{Status: svcframework.StatusReady}
}

// Identity returns the worker identity this service attributes issuances to.
func (s *Service) Identity() worker.Identity {
	return s.identity
}

// IssueCredential persists the candidate exactly once per id. A repeated id
// is a no-op returning the existing record, including when a concurrent
// issuance for a brand-new id wins the insert race.
func (s *Service) IssueCredential(ctx context.Context, request IssueCredentialRequest) (*IssueCredentialResponse, error) {
	if err := request.Credential.Validate(); err != nil {
		return nil, err
	}

	issued := credential.IssuedCredential{
		Credential: request.Credential,
		IssuedBy:   s.identity.ID,
		Timestamp:  s.Clock.Now().UTC().Format(credential.TimestampLayout),
	}
	wrote, err := s.storage.CreateCredential(ctx, issued)
	if err != nil {
		return nil, util.LoggingErrorMsgf(err, "could not issue credential: %s", request.Credential.ID)
	}
	if wrote {
		return &IssueCredentialResponse{
			Credential: issued,
			Message:    fmt.Sprintf("credential issued by %s", s.identity.ID),
		}, nil
	}

	// the id was already present; read back the authoritative record
	existing, err := s.storage.GetCredential(ctx, request.Credential.ID)
	if err != nil {
		return nil, util.LoggingErrorMsgf(err, "could not get existing credential: %s", request.Credential.ID)
	}
	if existing == nil {
		return nil, util.LoggingNewErrorf("credential disappeared after losing insert race: %s", request.Credential.ID)
	}
	return &IssueCredentialResponse{
		Credential:    *existing,
		AlreadyIssued: true,
		Message:       "Credential already issued",
	}, nil
}

// GetCredential returns the issued record for the id, or
// ErrCredentialNotFound when it was never issued.
func (s *Service) GetCredential(ctx context.Context, request GetCredentialRequest) (*GetCredentialResponse, error) {
	gotCred, err := s.storage.GetCredential(ctx, request.ID)
	if err != nil {
		return nil, util.LoggingErrorMsgf(err, "could not get credential: %s", request.ID)
	}
	if gotCred == nil {
		return nil, errors.Wrapf(ErrCredentialNotFound, "id: %s", request.ID)
	}
	return &GetCredentialResponse{Credential: *gotCred}, nil
}

// ListCredentials returns all issued credentials, most-recently-created
// first.
func (s *Service) ListCredentials(ctx context.Context) (*ListCredentialsResponse, error) {
	creds, err := s.storage.ListCredentials(ctx)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "could not list credentials")
	}
	return &ListCredentialsResponse{Credentials: creds}, nil
}
