package storage

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getDBImplementations(t *testing.T) []ServiceStorage {
	dbImpls := make([]ServiceStorage, 0)
	dbImpls = append(dbImpls, setupBoltDB(t), setupRedisDB(t), setupMemoryDB(t))
	return dbImpls
}

func setupBoltDB(t *testing.T) ServiceStorage {
	file, err := os.CreateTemp("", "bolt")
	require.NoError(t, err)
	name := file.Name()
	require.NoError(t, file.Close())

	db, err := NewStorage(Bolt, Option{
		ID:     BoltDBFilePathOption,
		Option: name,
	})
	require.NoError(t, err)
	require.True(t, db.IsOpen())

	t.Cleanup(func() {
		_ = db.Close()
		_ = os.Remove(name)
	})
	return db
}

func setupRedisDB(t *testing.T) ServiceStorage {
	server := miniredis.RunT(t)
	db, err := NewStorage(Redis, Option{
		ID:     RedisAddressOption,
		Option: server.Addr(),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func setupMemoryDB(t *testing.T) ServiceStorage {
	db, err := NewStorage(Memory)
	require.NoError(t, err)
	return db
}

func TestStorageRegistry(t *testing.T) {
	assert.True(t, IsStorageAvailable(Bolt))
	assert.True(t, IsStorageAvailable(Redis))
	assert.True(t, IsStorageAvailable(DatabaseSQL))
	assert.True(t, IsStorageAvailable(Memory))
	assert.False(t, IsStorageAvailable("mongo"))
	assert.Len(t, AvailableStorage(), 4)

	_, err := NewStorage("mongo")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestDBWriteAndRead(t *testing.T) {
	for _, db := range getDBImplementations(t) {
		t.Run(string(db.Type()), func(tt *testing.T) {
			ctx := context.Background()
			namespace := "testing"

			err := db.Write(ctx, namespace, "key1", []byte("value1"))
			assert.NoError(tt, err)

			got, err := db.Read(ctx, namespace, "key1")
			assert.NoError(tt, err)
			assert.Equal(tt, []byte("value1"), got)

			// overwrite
			err = db.Write(ctx, namespace, "key1", []byte("value2"))
			assert.NoError(tt, err)
			got, err = db.Read(ctx, namespace, "key1")
			assert.NoError(tt, err)
			assert.Equal(tt, []byte("value2"), got)

			// missing key reads as nil without error
			got, err = db.Read(ctx, namespace, "no-such-key")
			assert.NoError(tt, err)
			assert.Nil(tt, got)

			exists, err := db.Exists(ctx, namespace, "key1")
			assert.NoError(tt, err)
			assert.True(tt, exists)

			exists, err = db.Exists(ctx, namespace, "no-such-key")
			assert.NoError(tt, err)
			assert.False(tt, exists)
		})
	}
}

func TestDBWriteIfNotExists(t *testing.T) {
	for _, db := range getDBImplementations(t) {
		t.Run(string(db.Type()), func(tt *testing.T) {
			ctx := context.Background()
			namespace := "testing"

			wrote, err := db.WriteIfNotExists(ctx, namespace, "once", []byte("first"))
			assert.NoError(tt, err)
			assert.True(tt, wrote)

			// the second writer loses and the value is untouched
			wrote, err = db.WriteIfNotExists(ctx, namespace, "once", []byte("second"))
			assert.NoError(tt, err)
			assert.False(tt, wrote)

			got, err := db.Read(ctx, namespace, "once")
			assert.NoError(tt, err)
			assert.Equal(tt, []byte("first"), got)
		})
	}
}

func TestDBReadAllAndPrefix(t *testing.T) {
	for _, db := range getDBImplementations(t) {
		t.Run(string(db.Type()), func(tt *testing.T) {
			ctx := context.Background()
			namespace := "testing"

			for i := 0; i < 3; i++ {
				key := fmt.Sprintf("cred-%d", i)
				require.NoError(tt, db.Write(ctx, namespace, key, []byte(key)))
			}
			require.NoError(tt, db.Write(ctx, namespace, "other", []byte("other")))
			require.NoError(tt, db.Write(ctx, "unrelated", "cred-0", []byte("elsewhere")))

			all, err := db.ReadAll(ctx, namespace)
			assert.NoError(tt, err)
			assert.Len(tt, all, 4)
			assert.Equal(tt, []byte("cred-1"), all["cred-1"])

			prefixed, err := db.ReadPrefix(ctx, namespace, "cred-")
			assert.NoError(tt, err)
			assert.Len(tt, prefixed, 3)
			_, hasOther := prefixed["other"]
			assert.False(tt, hasOther)
		})
	}
}

func TestDBDelete(t *testing.T) {
	for _, db := range getDBImplementations(t) {
		t.Run(string(db.Type()), func(tt *testing.T) {
			ctx := context.Background()
			namespace := "deletions"

			require.NoError(tt, db.Write(ctx, namespace, "key1", []byte("value1")))
			require.NoError(tt, db.Write(ctx, namespace, "key2", []byte("value2")))

			assert.NoError(tt, db.Delete(ctx, namespace, "key1"))
			got, err := db.Read(ctx, namespace, "key1")
			assert.NoError(tt, err)
			assert.Nil(tt, got)

			assert.NoError(tt, db.DeleteNamespace(ctx, namespace))
			all, err := db.ReadAll(ctx, namespace)
			assert.NoError(tt, err)
			assert.Empty(tt, all)
		})
	}
}
