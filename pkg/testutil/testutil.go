// Package testutil provides the storage matrix service tests run against.
package testutil

import (
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/kube-credential/credential-service/pkg/storage"
)

var TestDatabases = []struct {
	Name           string
	ServiceStorage func(t *testing.T) storage.ServiceStorage
}{
	{
		Name:           "Test with Bolt DB",
		ServiceStorage: setupBoltTestDB,
	},
	{
		Name:           "Test with Redis DB",
		ServiceStorage: setupRedisTestDB,
	},
	{
		Name:           "Test with Memory DB",
		ServiceStorage: setupMemoryTestDB,
	},
}

func setupBoltTestDB(t *testing.T) storage.ServiceStorage {
	file, err := os.CreateTemp("", "bolt")
	require.NoError(t, err)
	name := file.Name()
	require.NoError(t, file.Close())

	s, err := storage.NewStorage(storage.Bolt, storage.Option{
		ID:     storage.BoltDBFilePathOption,
		Option: name,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close()
		_ = os.Remove(s.URI())
	})
	return s
}

func setupRedisTestDB(t *testing.T) storage.ServiceStorage {
	server := miniredis.RunT(t)
	s, err := storage.NewStorage(storage.Redis, storage.Option{
		ID:     storage.RedisAddressOption,
		Option: server.Addr(),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func setupMemoryTestDB(t *testing.T) storage.ServiceStorage {
	s, err := storage.NewStorage(storage.Memory)
	require.NoError(t, err)
	return s
}
