// Package db persists finished scans to PostgreSQL. It owns the connection
// setup, the embedded schema migrations and the scan repository.
package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/anstrom/netsweep/internal/errors"
	"github.com/anstrom/netsweep/internal/logging"
)

const (
	defaultPostgresPort    = 5432
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 2
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
)

// Config holds database connection settings.
type Config struct {
	Host            string        `yaml:"host" json:"host" mapstructure:"host"`
	Port            int           `yaml:"port" json:"port" mapstructure:"port" validate:"omitempty,gte=1,lte=65535"`
	Database        string        `yaml:"database" json:"database" mapstructure:"database"`
	Username        string        `yaml:"username" json:"username" mapstructure:"username"`
	Password        string        `yaml:"password" json:"-" mapstructure:"password"`
	SSLMode         string        `yaml:"ssl_mode" json:"ssl_mode" mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-ca verify-full"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns" mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns" mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// DefaultConfig returns the default database configuration. Database name,
// username and password must be configured explicitly.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            defaultPostgresPort,
		SSLMode:         "disable",
		MaxOpenConns:    defaultMaxOpenConns,
		MaxIdleConns:    defaultMaxIdleConns,
		ConnMaxLifetime: defaultConnMaxLifetime,
		ConnMaxIdleTime: defaultConnMaxIdleTime,
	}
}

// DSN builds a lib/pq key=value connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		quoteDSNValue(c.Host), c.Port, quoteDSNValue(c.Database),
		quoteDSNValue(c.Username), quoteDSNValue(c.Password), quoteDSNValue(c.SSLMode),
	)
}

// quoteDSNValue quotes values containing spaces or quotes.
func quoteDSNValue(v string) string {
	needs := v == ""
	for _, r := range v {
		if r == ' ' || r == '\'' || r == '\\' {
			needs = true
			break
		}
	}
	if !needs {
		return v
	}
	out := make([]rune, 0, len(v)+2)
	out = append(out, '\'')
	for _, r := range v {
		if r == '\'' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(append(out, '\''))
}

// DB wraps sqlx.DB.
type DB struct {
	*sqlx.DB
}

// Connect opens a PostgreSQL connection pool and verifies it. Errors never
// include the DSN.
func Connect(ctx context.Context, config *Config) (*DB, error) {
	conn, err := sqlx.ConnectContext(ctx, "postgres", config.DSN())
	if err != nil {
		return nil, errors.WrapDatabaseError(errors.CodeDatabaseConnection, "connect", stripPQ(err))
	}

	conn.SetMaxOpenConns(config.MaxOpenConns)
	conn.SetMaxIdleConns(config.MaxIdleConns)
	conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, errors.WrapDatabaseError(errors.CodeDatabaseConnection, "ping", stripPQ(err))
	}

	logging.Default().InfoDatabase("connected to database",
		"host", config.Host, "port", config.Port, "database", config.Database)
	return &DB{DB: conn}, nil
}

// stripPQ keeps only the server message of a PostgreSQL error.
func stripPQ(err error) error {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return fmt.Errorf("%s (%s)", pqErr.Message, pqErr.Code)
	}
	return err
}

// sanitizeDBError classifies a driver error into a coded DatabaseError.
func sanitizeDBError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.WrapDatabaseError(errors.CodeDatabaseQuery, operation, err)
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.WrapDatabaseError(errors.CodeTimeout, operation, err)
	}
	if stderrors.Is(err, context.Canceled) {
		return errors.WrapDatabaseError(errors.CodeCanceled, operation, err)
	}

	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		code := errors.CodeDatabaseQuery
		switch pqErr.Code {
		case "57014": // query_canceled
			code = errors.CodeCanceled
		case "57P01", "08000", "08003", "08006": // admin_shutdown, connection errors
			code = errors.CodeDatabaseConnection
		case "42501": // insufficient_privilege
			code = errors.CodePermission
		}
		return errors.WrapDatabaseError(code, operation, stripPQ(err))
	}
	return errors.WrapDatabaseError(errors.CodeDatabaseQuery, operation, err)
}
