package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/beer-orders/internal/port"
)

// MySQL error numbers for foreign key violations.
const (
	errRowIsReferenced = 1451
	errNoReferencedRow = 1452
)

//go:embed schema.sql
var schemaSQL string

type MySQLAdapter struct {
	db      *sql.DB
	nowFunc func() time.Time
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{
		db: db,
		nowFunc: func() time.Time {
			// DATETIME(6) keeps microseconds; truncate so written-back values match reads
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

// OpenMySQL opens a pool for dsn. parseTime is always enabled because the
// adapter scans DATETIME columns into time.Time.
func OpenMySQL(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Loc == nil {
		cfg.Loc = time.UTC
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

// Migrate creates the tables if they do not exist.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func translateMySQLError(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errRowIsReferenced:
			return fmt.Errorf("%w: %w", port.ErrBeerInUse, err)
		case errNoReferencedRow:
			return fmt.Errorf("%w: %w", port.ErrUnknownReference, err)
		}
	}
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
