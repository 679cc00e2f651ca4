// Package storage provides durable keyed storage independent of DB
// providers. Backends register themselves and are selected by configuration.
package storage

import (
	"context"
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

type Type string

const (
	Bolt        Type = "bolt"
	Redis       Type = "redis"
	DatabaseSQL Type = "sql"
	Memory      Type = "memory"
)

type OptionKey string

// Option is a provider-specific configuration value, identified by key.
type Option struct {
	ID     OptionKey `toml:"id"`
	Option any       `toml:"option"`
}

// ServiceStorage describes the api for storage independent of DB providers
type ServiceStorage interface {
	Init(opts ...Option) error
	Type() Type
	URI() string
	IsOpen() bool
	Close() error
	Write(ctx context.Context, namespace, key string, value []byte) error
	// WriteIfNotExists writes the value only when the key is absent and
	// reports whether the write happened. The check and the write are a
	// single atomic operation, so concurrent writers for the same key see
	// exactly one winner.
	WriteIfNotExists(ctx context.Context, namespace, key string, value []byte) (bool, error)
	Read(ctx context.Context, namespace, key string) ([]byte, error)
	Exists(ctx context.Context, namespace, key string) (bool, error)
	ReadAll(ctx context.Context, namespace string) (map[string][]byte, error)
	ReadPrefix(ctx context.Context, namespace, prefix string) (map[string][]byte, error)
	Delete(ctx context.Context, namespace, key string) error
	DeleteNamespace(ctx context.Context, namespace string) error
}

var registeredStorage = make(map[Type]ServiceStorage)

// RegisterStorage makes a storage provider available to NewStorage. The
// provided value acts as a prototype; NewStorage instantiates fresh copies.
func RegisterStorage(s ServiceStorage) error {
	if _, ok := registeredStorage[s.Type()]; ok {
		return fmt.Errorf("storage provider<%s> already registered", s.Type())
	}
	registeredStorage[s.Type()] = s
	return nil
}

// NewStorage instantiates and initializes the storage provider of the given
// type with the given options.
func NewStorage(storageType Type, opts ...Option) (ServiceStorage, error) {
	prototype, ok := registeredStorage[storageType]
	if !ok {
		return nil, fmt.Errorf("storage provider<%s> not registered", storageType)
	}
	s, ok := reflect.New(reflect.TypeOf(prototype).Elem()).Interface().(ServiceStorage)
	if !ok {
		return nil, fmt.Errorf("storage provider<%s> could not be instantiated", storageType)
	}
	if err := s.Init(opts...); err != nil {
		return nil, errors.Wrapf(err, "initializing storage provider<%s>", storageType)
	}
	return s, nil
}

// IsStorageAvailable returns true when the given provider is registered.
func IsStorageAvailable(storageType Type) bool {
	_, ok := registeredStorage[storageType]
	return ok
}

// AvailableStorage lists all registered providers.
func AvailableStorage() []Type {
	all := make([]Type, 0, len(registeredStorage))
	for t := range registeredStorage {
		all = append(all, t)
	}
	return all
}

// Join combines a namespace and key into a single flat key, for providers
// without native namespacing.
func Join(namespace, key string) string {
	return namespace + ":" + key
}
