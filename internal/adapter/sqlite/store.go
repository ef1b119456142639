package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/neomorfeo/tenancyd/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

const timeFormat = "2006-01-02T15:04:05Z"

// Outbox persists lease events inside the transaction that produced them.
type Outbox interface {
	EnqueueTx(ctx context.Context, tx *sql.Tx, event domain.LeaseEvent) error
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements domain.UnitOfWork, the lease and refund repositories, and
// both collaborator directories on a single SQLite database.
type Store struct {
	db     *sql.DB
	outbox Outbox
	logger *slog.Logger
}

// New opens a SQLite database, runs migrations, and returns a ready store.
func New(dataSourceName string) (*Store, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection keeps ":memory:" databases shared and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready store.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*Store, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &Store{db: db, logger: slog.Default()}, nil
}

// SetOutbox makes every unit of work write its events through o.
func (s *Store) SetOutbox(o Outbox) {
	s.outbox = o
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for use by other adapters (e.g., river).
func (s *Store) DB() *sql.DB {
	return s.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

// Do runs fn inside a transaction. Every read and write made through the
// given stores uses that transaction; any error rolls it back.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, st domain.Stores) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	pub := &txPublisher{tx: tx, outbox: s.outbox}
	st := domain.Stores{
		Leases:  &LeaseRepository{q: tx},
		Units:   &unitRepository{q: tx},
		Tenants: &tenantRepository{q: tx},
		Refunds: &RefundRepository{q: tx},
		Events:  pub,
	}

	if err := fn(ctx, st); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.ErrorContext(ctx, "rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	for _, e := range pub.pending {
		s.logger.DebugContext(ctx, "lease event", "type", e.Type, "lease_id", e.LeaseID, "tenant_id", e.TenantID)
	}
	return nil
}

// Leases returns a repository reading outside any unit of work.
func (s *Store) Leases() *LeaseRepository {
	return &LeaseRepository{q: s.db}
}

// Refunds returns a repository reading outside any unit of work.
func (s *Store) Refunds() *RefundRepository {
	return &RefundRepository{q: s.db}
}

// txPublisher hands events to the outbox within the transaction. Without an
// outbox the events are only logged once the transaction commits.
type txPublisher struct {
	tx      *sql.Tx
	outbox  Outbox
	pending []domain.LeaseEvent
}

func (p *txPublisher) Publish(ctx context.Context, e domain.LeaseEvent) error {
	if p.outbox != nil {
		return p.outbox.EnqueueTx(ctx, p.tx, e)
	}
	p.pending = append(p.pending, e)
	return nil
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func checkAffected(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

func noRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
