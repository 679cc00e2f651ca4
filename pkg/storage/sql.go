package storage

import (
	"context"
	"database/sql"
	"encoding/base64"
	"strings"

	// include the postgres driver so users can pick "postgres" via configuration
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	SQLConnectionString OptionKey = "sql-connection-string-option"
	SQLDriverName       OptionKey = "sql-driver-name-option"
)

func init() {
	if err := RegisterStorage(new(SQLDB)); err != nil {
		panic(err)
	}
}

// SQLDB stores namespaced key-values in two relational tables. Values are
// base64 encoded so any driver-safe varchar column can hold them.
type SQLDB struct {
	db               *sql.DB
	connectionString string
}

func (s *SQLDB) Init(opts ...Option) error {
	connString, sqlDriverName, err := processSQLOptions(opts...)
	if err != nil {
		return err
	}
	s.connectionString = connString

	db, err := sql.Open(sqlDriverName, connString)
	if err != nil {
		return err
	}

	if _, err = db.Exec(`CREATE TABLE IF NOT EXISTS key_values (
    key varchar PRIMARY KEY,
    value varchar
);`); err != nil {
		return err
	}

	if _, err = db.Exec(`CREATE TABLE IF NOT EXISTS namespaces (
    namespace varchar
);`); err != nil {
		return err
	}

	if _, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_namespaces ON namespaces (namespace);`); err != nil {
		return err
	}

	s.db = db
	return nil
}

func processSQLOptions(opts ...Option) (connString string, sqlDriverName string, err error) {
	for _, opt := range opts {
		switch opt.ID {
		case SQLConnectionString:
			maybeConnString, ok := opt.Option.(string)
			if !ok {
				err = errors.New("sql connection string must be a string")
				return
			}
			connString = maybeConnString
		case SQLDriverName:
			maybeDriverName, ok := opt.Option.(string)
			if !ok {
				err = errors.New("sql driver name must be a string")
				return
			}
			sqlDriverName = maybeDriverName
		}
	}
	if len(connString) == 0 || len(sqlDriverName) == 0 {
		err = errors.New("sql connection string and driver name must not be empty")
		return
	}
	return connString, sqlDriverName, nil
}

func (s *SQLDB) Type() Type {
	return DatabaseSQL
}

func (s *SQLDB) URI() string {
	return s.connectionString
}

func (s *SQLDB) IsOpen() bool {
	if err := s.db.Ping(); err != nil {
		logrus.WithError(err).Error("pinging db")
		return false
	}
	return true
}

func (s *SQLDB) Close() error {
	return s.db.Close()
}

func (s *SQLDB) Write(ctx context.Context, namespace, key string, value []byte) error {
	if err := s.ensureNamespace(ctx, namespace); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO key_values (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = $2",
		Join(namespace, key), base64.RawStdEncoding.EncodeToString(value))
	return err
}

func (s *SQLDB) WriteIfNotExists(ctx context.Context, namespace, key string, value []byte) (bool, error) {
	if err := s.ensureNamespace(ctx, namespace); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO key_values (key, value) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING",
		Join(namespace, key), base64.RawStdEncoding.EncodeToString(value))
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *SQLDB) ensureNamespace(ctx context.Context, namespace string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO namespaces (namespace) VALUES ($1) EXCEPT SELECT namespace FROM namespaces WHERE namespace = $1",
		namespace)
	return err
}

func (s *SQLDB) Read(ctx context.Context, namespace, key string) ([]byte, error) {
	r := s.db.QueryRowContext(ctx, "SELECT value FROM key_values WHERE key = $1", Join(namespace, key))
	var value string
	if err := r.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return base64.RawStdEncoding.DecodeString(value)
}

func (s *SQLDB) Exists(ctx context.Context, namespace, key string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM key_values WHERE key = $1 LIMIT 1)",
		Join(namespace, key)).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *SQLDB) ReadAll(ctx context.Context, namespace string) (map[string][]byte, error) {
	return s.readLike(ctx, namespace, Join(namespace, "%"))
}

func (s *SQLDB) ReadPrefix(ctx context.Context, namespace, prefix string) (map[string][]byte, error) {
	return s.readLike(ctx, namespace, Join(namespace, prefix)+"%")
}

func (s *SQLDB) readLike(ctx context.Context, namespace, pattern string) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM key_values WHERE key LIKE $1", pattern)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			logrus.WithError(err).Error("closing rows")
		}
	}(rows)

	result := make(map[string][]byte)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		decoded, err := base64.RawStdEncoding.DecodeString(value)
		if err != nil {
			return nil, err
		}
		result[strings.TrimPrefix(key, Join(namespace, ""))] = decoded
	}
	return result, rows.Err()
}

func (s *SQLDB) Delete(ctx context.Context, namespace, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM key_values WHERE key = $1", Join(namespace, key))
	return err
}

func (s *SQLDB) DeleteNamespace(ctx context.Context, namespace string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, "DELETE FROM key_values WHERE key LIKE $1", Join(namespace, "%")); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM namespaces WHERE namespace = $1", namespace); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

var _ ServiceStorage = (*SQLDB)(nil)
