package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const (
	// BoltDBFilePathOption sets the file the database lives in.
	BoltDBFilePathOption OptionKey = "boltdb-filepath-option"

	defaultBoltFilePath = "credential-service.db"
)

func init() {
	if err := RegisterStorage(new(BoltDB)); err != nil {
		panic(err)
	}
}

// BoltDB is a file-based implementation of ServiceStorage on bbolt, the
// default provider.
type BoltDB struct {
	db       *bolt.DB
	filePath string
}

func (b *BoltDB) Init(opts ...Option) error {
	filePath := defaultBoltFilePath
	for _, opt := range opts {
		if opt.ID == BoltDBFilePathOption {
			maybeFilePath, ok := opt.Option.(string)
			if !ok {
				return errors.New("bolt db file path must be a string")
			}
			filePath = maybeFilePath
		}
	}
	db, err := bolt.Open(filePath, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return err
	}
	b.db = db
	b.filePath = filePath
	return nil
}

func (b *BoltDB) Type() Type {
	return Bolt
}

func (b *BoltDB) URI() string {
	return b.filePath
}

func (b *BoltDB) IsOpen() bool {
	return b.db != nil && b.db.Path() != ""
}

func (b *BoltDB) Close() error {
	return b.db.Close()
}

func (b *BoltDB) Write(_ context.Context, namespace, key string, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), value)
	})
}

func (b *BoltDB) WriteIfNotExists(_ context.Context, namespace, key string, value []byte) (bool, error) {
	var wrote bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return err
		}
		if bucket.Get([]byte(key)) != nil {
			return nil
		}
		if err = bucket.Put([]byte(key), value); err != nil {
			return err
		}
		wrote = true
		return nil
	})
	return wrote, err
}

func (b *BoltDB) Read(_ context.Context, namespace, key string) ([]byte, error) {
	var result []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(namespace))
		if bucket == nil {
			logrus.Debugf("namespace<%s> does not exist", namespace)
			return nil
		}
		// values are only valid for the life of the transaction
		if v := bucket.Get([]byte(key)); v != nil {
			result = append([]byte(nil), v...)
		}
		return nil
	})
	return result, err
}

func (b *BoltDB) Exists(ctx context.Context, namespace, key string) (bool, error) {
	v, err := b.Read(ctx, namespace, key)
	if err != nil {
		return false, err
	}
	return v != nil, nil
}

func (b *BoltDB) ReadAll(_ context.Context, namespace string) (map[string][]byte, error) {
	result := make(map[string][]byte)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(namespace))
		if bucket == nil {
			logrus.Debugf("namespace<%s> does not exist", namespace)
			return nil
		}
		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			result[string(k)] = append([]byte(nil), v...)
		}
		return nil
	})
	return result, err
}

func (b *BoltDB) ReadPrefix(_ context.Context, namespace, prefix string) (map[string][]byte, error) {
	result := make(map[string][]byte)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(namespace))
		if bucket == nil {
			logrus.Debugf("namespace<%s> does not exist", namespace)
			return nil
		}
		cursor := bucket.Cursor()
		prefixBytes := []byte(prefix)
		for k, v := cursor.Seek(prefixBytes); k != nil && bytes.HasPrefix(k, prefixBytes); k, v = cursor.Next() {
			result[string(k)] = append([]byte(nil), v...)
		}
		return nil
	})
	return result, err
}

func (b *BoltDB) Delete(_ context.Context, namespace, key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(namespace))
		if bucket == nil {
			return fmt.Errorf("namespace<%s> does not exist", namespace)
		}
		return bucket.Delete([]byte(key))
	})
}

func (b *BoltDB) DeleteNamespace(_ context.Context, namespace string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(namespace)); err != nil {
			return errors.Wrapf(err, "deleting namespace<%s>", namespace)
		}
		return nil
	})
}

var _ ServiceStorage = (*BoltDB)(nil)
