package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/msomdec/flashdeck/internal/domain"
	"github.com/msomdec/flashdeck/internal/repository/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// querier is the subset of *sql.DB and *sql.Tx used by the repositories.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps the SQLite connection and hands out repositories bound to it.
type DB struct {
	SqlDB *sql.DB
}

// New opens a SQLite database at the given path and configures it for use.
// It enables WAL mode and foreign keys.
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite has a single writer; one connection also keeps the pragmas below
	// applied to every statement.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Enable foreign key enforcement.
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{SqlDB: db}, nil
}

// Migrate applies all pending schema migrations.
func (d *DB) Migrate(ctx context.Context) error {
	return migrations.Run(ctx, d.SqlDB)
}

// Reset drops every application table and re-applies the migrations.
func (d *DB) Reset(ctx context.Context) error {
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS flashcards",
		"DROP TABLE IF EXISTS figures",
		"DROP TABLE IF EXISTS file_blobs",
		"DROP TABLE IF EXISTS schema_migrations",
	} {
		if _, err := d.SqlDB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("reset schema: %w", err)
		}
	}
	return d.Migrate(ctx)
}

// Close closes the underlying connection pool.
func (d *DB) Close() error {
	return d.SqlDB.Close()
}

func (d *DB) Figures() domain.FigureRepository {
	return &figureRepo{db: d.SqlDB}
}

func (d *DB) Flashcards() domain.FlashcardRepository {
	return &flashcardRepo{db: d.SqlDB}
}

// FileStore returns a file store that keeps image bytes in the database.
func (d *DB) FileStore() domain.FileStore {
	return &fileStore{db: d.SqlDB}
}

// InTx runs fn with repositories bound to one transaction. Do not use d's own
// repositories inside fn: the pool holds a single connection.
func (d *DB) InTx(ctx context.Context, fn func(repos domain.Repositories) error) error {
	tx, err := d.SqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(txRepos{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type txRepos struct {
	tx *sql.Tx
}

func (r txRepos) Figures() domain.FigureRepository       { return &figureRepo{db: r.tx} }
func (r txRepos) Flashcards() domain.FlashcardRepository { return &flashcardRepo{db: r.tx} }

func nullIfBlank(s string) sql.NullString {
	if domain.IsBlank(s) {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
