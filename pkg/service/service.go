// Package service wires storage and the domain services for each binary.
package service

import (
	"fmt"

	"github.com/kube-credential/credential-service/config"
	"github.com/kube-credential/credential-service/internal/util"
	"github.com/kube-credential/credential-service/internal/worker"
	"github.com/kube-credential/credential-service/pkg/service/credential"
	svcframework "github.com/kube-credential/credential-service/pkg/service/framework"
	"github.com/kube-credential/credential-service/pkg/service/verification"
	"github.com/kube-credential/credential-service/pkg/storage"
)

// IssuanceService represents the issuance side's services and their
// dependencies independent of transport.
type IssuanceService struct {
	Credential *credential.Service

	storage storage.ServiceStorage
}

// InstantiateIssuanceService sets up the storage provider and the credential
// service for an issuance process.
func InstantiateIssuanceService(cfg config.ServicesConfig, identity worker.Identity) (*IssuanceService, error) {
	db, err := instantiateStorage(cfg)
	if err != nil {
		return nil, err
	}
	credentialService, err := credential.NewCredentialService(cfg.IssuanceConfig, db, identity)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "could not instantiate the credential service")
	}
	return &IssuanceService{
		Credential: credentialService,
		storage:    db,
	}, nil
}

// GetServices returns the services this process runs, for readiness checks.
func (s *IssuanceService) GetServices() []svcframework.Service {
	return []svcframework.Service{s.Credential}
}

// Close releases the storage provider.
func (s *IssuanceService) Close() error {
	return s.storage.Close()
}

// VerificationService represents the verification side's services and their
// dependencies independent of transport.
type VerificationService struct {
	Verification *verification.Service

	storage storage.ServiceStorage
}

// InstantiateVerificationService sets up the storage provider, the issuance
// lookup client, and the verification service for a verification process.
func InstantiateVerificationService(cfg config.ServicesConfig, identity worker.Identity) (*VerificationService, error) {
	db, err := instantiateStorage(cfg)
	if err != nil {
		return nil, err
	}
	lookup, err := verification.NewHTTPCredentialLookup(cfg.VerificationConfig.IssuanceServiceURL, cfg.VerificationConfig.LookupTimeout)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "could not instantiate the issuance lookup client")
	}
	verificationService, err := verification.NewVerificationService(cfg.VerificationConfig, db, lookup, identity)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "could not instantiate the verification service")
	}
	return &VerificationService{
		Verification: verificationService,
		storage:      db,
	}, nil
}

// GetServices returns the services this process runs, for readiness checks.
func (s *VerificationService) GetServices() []svcframework.Service {
	return []svcframework.Service{s.Verification}
}

// Close releases the storage provider.
func (s *VerificationService) Close() error {
	return s.storage.Close()
}

func instantiateStorage(cfg config.ServicesConfig) (storage.ServiceStorage, error) {
	if !storage.IsStorageAvailable(storage.Type(cfg.StorageProvider)) {
		return nil, fmt.Errorf("%s storage provider configured, but not available", cfg.StorageProvider)
	}
	db, err := storage.NewStorage(storage.Type(cfg.StorageProvider), cfg.StorageOptions...)
	if err != nil {
		return nil, util.LoggingErrorMsgf(err, "could not instantiate storage provider: %s", cfg.StorageProvider)
	}
	return db, nil
}
