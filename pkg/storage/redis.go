package storage

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	goredislib "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	// RedisAddressOption is the host:port of the redis server. Required.
	RedisAddressOption OptionKey = "redis-address-option"
	// PasswordOption is the redis password. Optional.
	PasswordOption OptionKey = "password-option"

	pong               = "PONG"
	redisScanBatchSize = 1000
	namespaceSep       = "#"
)

func init() {
	if err := RegisterStorage(new(RedisDB)); err != nil {
		panic(err)
	}
}

type RedisDB struct {
	db *goredislib.Client
}

func (b *RedisDB) Init(opts ...Option) error {
	var address, password string
	for _, opt := range opts {
		switch opt.ID {
		case RedisAddressOption:
			maybeAddress, ok := opt.Option.(string)
			if !ok {
				return errors.New("redis address must be a string")
			}
			address = maybeAddress
		case PasswordOption:
			maybePassword, ok := opt.Option.(string)
			if !ok {
				return errors.New("redis password must be a string")
			}
			password = maybePassword
		}
	}
	if address == "" {
		return errors.New("redis address option is required")
	}
	b.db = goredislib.NewClient(&goredislib.Options{
		Addr:     address,
		Password: password,
	})
	return nil
}

func (b *RedisDB) Type() Type {
	return Redis
}

func (b *RedisDB) URI() string {
	return b.db.Options().Addr
}

func (b *RedisDB) IsOpen() bool {
	res, err := b.db.Ping(context.Background()).Result()
	if err != nil {
		logrus.WithError(err).Error("pinging redis")
		return false
	}
	return res == pong
}

func (b *RedisDB) Close() error {
	return b.db.Close()
}

func (b *RedisDB) Write(ctx context.Context, namespace, key string, value []byte) error {
	// zero expiration means the key never expires
	return b.db.Set(ctx, getRedisKey(namespace, key), value, 0).Err()
}

func (b *RedisDB) WriteIfNotExists(ctx context.Context, namespace, key string, value []byte) (bool, error) {
	return b.db.SetNX(ctx, getRedisKey(namespace, key), value, 0).Result()
}

func (b *RedisDB) Read(ctx context.Context, namespace, key string) ([]byte, error) {
	res, err := b.db.Get(ctx, getRedisKey(namespace, key)).Bytes()
	if errors.Is(err, goredislib.Nil) {
		return nil, nil
	}
	return res, err
}

func (b *RedisDB) Exists(ctx context.Context, namespace, key string) (bool, error) {
	count, err := b.db.Exists(ctx, getRedisKey(namespace, key)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (b *RedisDB) ReadAll(ctx context.Context, namespace string) (map[string][]byte, error) {
	return b.readMatching(ctx, namespace, namespace+namespaceSep+"*")
}

func (b *RedisDB) ReadPrefix(ctx context.Context, namespace, prefix string) (map[string][]byte, error) {
	return b.readMatching(ctx, namespace, getRedisKey(namespace, prefix)+"*")
}

func (b *RedisDB) readMatching(ctx context.Context, namespace, match string) (map[string][]byte, error) {
	keys, err := b.scanKeys(ctx, match)
	if err != nil {
		return nil, err
	}
	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}
	values, err := b.db.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "getting multiple keys")
	}
	for i, val := range values {
		if val == nil {
			continue
		}
		s, ok := val.(string)
		if !ok {
			return nil, errors.Errorf("unexpected value type for key<%s>", keys[i])
		}
		result[strings.TrimPrefix(keys[i], namespace+namespaceSep)] = []byte(s)
	}
	return result, nil
}

func (b *RedisDB) scanKeys(ctx context.Context, match string) ([]string, error) {
	var cursor uint64
	allKeys := make([]string, 0)
	for {
		keys, nextCursor, err := b.db.Scan(ctx, cursor, match, redisScanBatchSize).Result()
		if err != nil {
			return nil, errors.Wrap(err, "scanning keys")
		}
		allKeys = append(allKeys, keys...)
		if nextCursor == 0 {
			return allKeys, nil
		}
		cursor = nextCursor
	}
}

func (b *RedisDB) Delete(ctx context.Context, namespace, key string) error {
	return b.db.Del(ctx, getRedisKey(namespace, key)).Err()
}

func (b *RedisDB) DeleteNamespace(ctx context.Context, namespace string) error {
	keys, err := b.scanKeys(ctx, namespace+namespaceSep+"*")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return errors.Errorf("namespace<%s> does not exist", namespace)
	}
	return b.db.Del(ctx, keys...).Err()
}

func getRedisKey(namespace, key string) string {
	return namespace + namespaceSep + key
}

var _ ServiceStorage = (*RedisDB)(nil)
