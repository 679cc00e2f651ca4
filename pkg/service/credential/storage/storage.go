// Package storage persists issued credentials, keyed by credential id.
package storage

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/kube-credential/credential-service/internal/credential"
	"github.com/kube-credential/credential-service/internal/util"
	"github.com/kube-credential/credential-service/pkg/storage"
)

const namespace = "credential"

// StoredCredential is the denormalized form an issued credential is stored
// in. CreatedAt and Seq exist only to order listings most-recent-first; Seq
// breaks CreatedAt ties only among records written by one process, so
// records from before a restart order against newer ones by CreatedAt alone,
// whose nanosecond precision makes ties across processes unlikely.
type StoredCredential struct {
	Credential credential.IssuedCredential `json:"credential"`
	CreatedAt  time.Time                   `json:"createdAt"`
	Seq        uint64                      `json:"seq"`
}

type Storage struct {
	db  storage.ServiceStorage
	seq atomic.Uint64
}

func NewCredentialStorage(db storage.ServiceStorage) (*Storage, error) {
	if db == nil {
		return nil, errors.New("db reference is nil")
	}
	return &Storage{db: db}, nil
}

// CreateCredential stores the record only if its id is absent, reporting
// whether this call performed the write. The insert-if-absent is atomic, so
// two concurrent first-time issuances for the same id produce exactly one
// durable write.
func (s *Storage) CreateCredential(ctx context.Context, cred credential.IssuedCredential) (bool, error) {
	stored := StoredCredential{
		Credential: cred,
		CreatedAt:  time.Now().UTC(),
		Seq:        s.seq.Add(1),
	}
	storedBytes, err := json.Marshal(stored)
	if err != nil {
		return false, util.LoggingErrorMsgf(err, "could not store credential: %s", cred.ID)
	}
	return s.db.WriteIfNotExists(ctx, namespace, cred.ID, storedBytes)
}

// GetCredential returns the stored record for the id, or nil when absent.
func (s *Storage) GetCredential(ctx context.Context, id string) (*credential.IssuedCredential, error) {
	storedBytes, err := s.db.Read(ctx, namespace, id)
	if err != nil {
		return nil, util.LoggingErrorMsgf(err, "could not get credential: %s", id)
	}
	if storedBytes == nil {
		return nil, nil
	}
	var stored StoredCredential
	if err = json.Unmarshal(storedBytes, &stored); err != nil {
		return nil, util.LoggingErrorMsgf(err, "could not unmarshal stored credential: %s", id)
	}
	return &stored.Credential, nil
}

// ListCredentials returns all stored records, most-recently-created first.
func (s *Storage) ListCredentials(ctx context.Context) ([]credential.IssuedCredential, error) {
	all, err := s.db.ReadAll(ctx, namespace)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "could not list credentials")
	}
	stored := make([]StoredCredential, 0, len(all))
	for key, value := range all {
		var sc StoredCredential
		if err = json.Unmarshal(value, &sc); err != nil {
			return nil, util.LoggingErrorMsgf(err, "could not unmarshal stored credential: %s", key)
		}
		stored = append(stored, sc)
	}
	sort.Slice(stored, func(i, j int) bool {
		if stored[i].CreatedAt.Equal(stored[j].CreatedAt) {
			return stored[i].Seq > stored[j].Seq
		}
		return stored[i].CreatedAt.After(stored[j].CreatedAt)
	})
	creds := make([]credential.IssuedCredential, 0, len(stored))
	for _, sc := range stored {
		creds = append(creds, sc.Credential)
	}
	return creds, nil
}

// IsOpen reports whether the backing store is usable.
func (s *Storage) IsOpen() bool {
	return s.db != nil && s.db.IsOpen()
}
