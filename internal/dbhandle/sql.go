// Package dbhandle adapts database/sql to the narrow handle the database
// probe consumes.
package dbhandle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/keithlinneman/linnemanlabs-sysops/internal/xerrors"
)

const (
	driverName = "mysql"

	maxOpenConns    = 2
	maxIdleConns    = 1
	connMaxLifetime = 5 * time.Minute
)

// ErrNoRows is returned by QueryScalar when the query produced no row.
var ErrNoRows = errors.New("query returned no rows")

// SQL is a connection handle owned by the caller; the dashboard only
// borrows it. It holds no state beyond the pool, so concurrent collects can
// share it.
type SQL struct {
	db *sql.DB
}

// Open validates dsn and returns a lazily connecting handle. It does not
// dial: an unreachable server shows up in the probe, not at startup.
func Open(dsn string) (*SQL, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, xerrors.Wrap(err, "parse database dsn")
	}
	if mc.Timeout == 0 {
		mc.Timeout = 2 * time.Second
	}
	conn, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, xerrors.Wrap(err, "create database connector")
	}
	return New(sql.OpenDB(conn)), nil
}

// New wraps an existing pool and applies the small pool limits the
// dashboard needs.
func New(db *sql.DB) *SQL {
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	return &SQL{db: db}
}

// QueryScalar returns the first column of the first row in canonical string
// form. A failure is reported only through the returned error, which carries
// the driver message for this call.
func (s *SQL) QueryScalar(ctx context.Context, query string) (string, error) {
	var v any
	err := s.db.QueryRowContext(ctx, query).Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", ErrNoRows
	case err != nil:
		return "", err
	}
	return Canonical(v), nil
}

func (s *SQL) Close() error { return s.db.Close() }

// Canonical renders a scanned scalar the same way regardless of whether the
// driver returned it as text or binary protocol.
func Canonical(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
