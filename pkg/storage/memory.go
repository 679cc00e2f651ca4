package storage

import (
	"context"
	"strings"
	"sync"
)

func init() {
	if err := RegisterStorage(new(MemoryDB)); err != nil {
		panic(err)
	}
}

// MemoryDB is an in memory implementation of ServiceStorage that is safe for
// concurrent use. Intended for tests and local development; nothing survives
// a process restart.
type MemoryDB struct {
	maps sync.Map
}

func (f *MemoryDB) Init(_ ...Option) error {
	return nil
}

func (f *MemoryDB) Type() Type {
	return Memory
}

func (f *MemoryDB) URI() string {
	return "memory"
}

func (f *MemoryDB) IsOpen() bool {
	return true
}

func (f *MemoryDB) Close() error {
	return nil
}

func (f *MemoryDB) namespaceMap(namespace string) *sync.Map {
	m, _ := f.maps.LoadOrStore(namespace, &sync.Map{})
	return m.(*sync.Map)
}

func (f *MemoryDB) Write(_ context.Context, namespace, key string, value []byte) error {
	f.namespaceMap(namespace).Store(key, append([]byte(nil), value...))
	return nil
}

func (f *MemoryDB) WriteIfNotExists(_ context.Context, namespace, key string, value []byte) (bool, error) {
	_, loaded := f.namespaceMap(namespace).LoadOrStore(key, append([]byte(nil), value...))
	return !loaded, nil
}

func (f *MemoryDB) Read(_ context.Context, namespace, key string) ([]byte, error) {
	v, ok := f.namespaceMap(namespace).Load(key)
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v.([]byte)...), nil
}

func (f *MemoryDB) Exists(_ context.Context, namespace, key string) (bool, error) {
	_, ok := f.namespaceMap(namespace).Load(key)
	return ok, nil
}

func (f *MemoryDB) ReadAll(_ context.Context, namespace string) (map[string][]byte, error) {
	result := make(map[string][]byte)
	f.namespaceMap(namespace).Range(func(key, value any) bool {
		result[key.(string)] = append([]byte(nil), value.([]byte)...)
		return true
	})
	return result, nil
}

func (f *MemoryDB) ReadPrefix(_ context.Context, namespace, prefix string) (map[string][]byte, error) {
	result := make(map[string][]byte)
	f.namespaceMap(namespace).Range(func(key, value any) bool {
		if strings.HasPrefix(key.(string), prefix) {
			result[key.(string)] = append([]byte(nil), value.([]byte)...)
		}
		return true
	})
	return result, nil
}

func (f *MemoryDB) Delete(_ context.Context, namespace, key string) error {
	f.namespaceMap(namespace).Delete(key)
	return nil
}

func (f *MemoryDB) DeleteNamespace(_ context.Context, namespace string) error {
	f.maps.Delete(namespace)
	return nil
}

var _ ServiceStorage = (*MemoryDB)(nil)
