// Package storage holds the verification history: an append-only log of
// verification attempts, queryable by credential id.
package storage

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/kube-credential/credential-service/internal/credential"
	"github.com/kube-credential/credential-service/internal/util"
	"github.com/kube-credential/credential-service/pkg/storage"
)

const (
	namespace = "verification"

	// keys are <credential id>/<row id>; the random row id keeps appends
	// for the same credential from colliding
	keySep = "/"
)

// StoredVerification is one history row. Rows are appended, never updated
// or deleted. Seq breaks CreatedAt ties only among rows written by one
// process; rows from before a restart order against newer ones by CreatedAt
// alone, whose nanosecond precision makes ties across processes unlikely.
type StoredVerification struct {
	CredentialID string                        `json:"credentialId"`
	Result       credential.VerificationResult `json:"result"`
	CreatedAt    time.Time                     `json:"createdAt"`
	Seq          uint64                        `json:"seq"`
}

type Storage struct {
	db  storage.ServiceStorage
	seq atomic.Uint64
}

func NewVerificationStorage(db storage.ServiceStorage) (*Storage, error) {
	if db == nil {
		return nil, errors.New("db reference is nil")
	}
	return &Storage{db: db}, nil
}

// Record appends one row for the credential id.
func (s *Storage) Record(ctx context.Context, credentialID string, result credential.VerificationResult) error {
	stored := StoredVerification{
		CredentialID: credentialID,
		Result:       result,
		CreatedAt:    time.Now().UTC(),
		Seq:          s.seq.Add(1),
	}
	storedBytes, err := json.Marshal(stored)
	if err != nil {
		return util.LoggingErrorMsgf(err, "could not store verification result: %s", credentialID)
	}
	key := credentialID + keySep + uuid.NewString()
	return s.db.Write(ctx, namespace, key, storedBytes)
}

// Query returns history rows most-recent-first, filtered by credential id
// when one is given. Filtering matches the exact id carried in each row
// rather than a key pattern, so an id that happens to be a prefix of another
// (or contains a backend's wildcard characters) never picks up or loses
// foreign rows.
func (s *Storage) Query(ctx context.Context, credentialID string) ([]credential.VerificationResult, error) {
	rows, err := s.db.ReadAll(ctx, namespace)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "could not query verification history")
	}

	stored := make([]StoredVerification, 0, len(rows))
	for key, value := range rows {
		var sv StoredVerification
		if err = json.Unmarshal(value, &sv); err != nil {
			return nil, util.LoggingErrorMsgf(err, "could not unmarshal verification row: %s", key)
		}
		if credentialID != "" && sv.CredentialID != credentialID {
			continue
		}
		stored = append(stored, sv)
	}
	sort.Slice(stored, func(i, j int) bool {
		if stored[i].CreatedAt.Equal(stored[j].CreatedAt) {
			return stored[i].Seq > stored[j].Seq
		}
		return stored[i].CreatedAt.After(stored[j].CreatedAt)
	})

	results := make([]credential.VerificationResult, 0, len(stored))
	for _, sv := range stored {
		results = append(results, sv.Result)
	}
	return results, nil
}

// IsOpen reports whether the backing store is usable.
func (s *Storage) IsOpen() bool {
	return s.db != nil && s.db.IsOpen()
}
