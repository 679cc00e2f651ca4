// Package verification implements the verification protocol: resolve the
// authoritative record from the issuance authority, compare it field-by-field
// against the submitted candidate, and record the attempt.
package verification

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kube-credential/credential-service/config"
	"github.com/kube-credential/credential-service/internal/credential"
	"github.com/kube-credential/credential-service/internal/util"
	"github.com/kube-credential/credential-service/internal/worker"
	svcframework "github.com/kube-credential/credential-service/pkg/service/framework"
	verstorage "github.com/kube-credential/credential-service/pkg/service/verification/storage"
	"github.com/kube-credential/credential-service/pkg/storage"
)

type Service struct {
	config   config.VerificationServiceConfig
	storage  *verstorage.Storage
	lookup   CredentialLookup
	identity worker.Identity

	// Clock supplies verification timestamps; swap for a mock in tests.
	Clock clock.Clock
}

func NewVerificationService(config config.VerificationServiceConfig, db storage.ServiceStorage, lookup CredentialLookup, identity worker.Identity) (*Service, error) {
	if lookup == nil {
		return nil, errors.New("credential lookup cannot be nil")
	}
	verificationStorage, err := verstorage.NewVerificationStorage(db)
	if err != nil {
		return nil, errors.Wrap(err, "instantiating verification storage")
	}
	return &Service{
		config:   config,
		storage:  verificationStorage,
		lookup:   lookup,
		identity: identity,
		Clock:    clock.New(),
	}, nil
}

func (s *Service) Type() svcframework.Type {
	return svcframework.Verification
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

// Identity returns the worker identity this service attributes
// verifications to.
func (s *Service) Identity() worker.Identity {
	return s.identity
}

// VerifyCredential decides whether the submitted candidate matches the
// authoritative issued record and appends the outcome to history. A failure
// to reach the issuance authority becomes an invalid result with a
// descriptive message; it is never surfaced as an error to the caller. The
// only error return is a ValidationError for a malformed candidate, raised
// before any network call.
func (s *Service) VerifyCredential(ctx context.Context, submitted credential.Credential) (*credential.VerificationResult, error) {
	if err := submitted.Validate(); err != nil {
		return nil, err
	}

	issued, lookupErr := s.lookup.GetCredential(ctx, submitted.ID)

	result := credential.VerificationResult{
		VerifiedBy:            s.identity.ID,
		VerificationTimestamp: s.now(),
	}
	switch {
	case lookupErr != nil:
		result.Message = fmt.Sprintf("Verification error by %s: %s", s.identity.ID, lookupErr)
	case issued == nil:
		result.Message = fmt.Sprintf("Credential not found in issuance service. Verification failed by %s", s.identity.ID)
	default:
		result.Credential = issued
		if credential.Compare(submitted, *issued) {
			result.IsValid = true
			result.Message = fmt.Sprintf("Credential verified successfully by %s. Originally issued by %s at %s",
				s.identity.ID, issued.IssuedBy, issued.Timestamp)
		} else {
			result.Message = fmt.Sprintf("Credential data mismatch. Verification failed by %s", s.identity.ID)
		}
	}

	if err := s.storage.Record(ctx, submitted.ID, result); err != nil {
		// a failed history write is itself recorded as an invalid result;
		// the caller still gets a response rather than a fault
		errResult := credential.VerificationResult{
			VerifiedBy:            s.identity.ID,
			VerificationTimestamp: s.now(),
			Message:               fmt.Sprintf("Verification error by %s: %s", s.identity.ID, err),
		}
		if recordErr := s.storage.Record(ctx, submitted.ID, errResult); recordErr != nil {
			logrus.WithError(recordErr).Error("failed to record verification error result")
		}
		return &errResult, nil
	}
	return &result, nil
}

// GetHistory returns past verification attempts, most-recent-first, for one
// credential id or for all when the id is empty.
func (s *Service) GetHistory(ctx context.Context, credentialID string) ([]credential.VerificationResult, error) {
	history, err := s.storage.Query(ctx, credentialID)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "could not retrieve verification history")
	}
	return history, nil
}

func (s *Service) now() string {
	return s.Clock.Now().UTC().Format(credential.TimestampLayout)
}
