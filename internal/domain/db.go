package domain

import "context"

// Database defines lifecycle operations for the underlying database.
// Each implementation (SQLite, Postgres, etc.) owns its own migration
// files and strategy, ensuring the entire backend is swappable.
type Database interface {
	Migrate(ctx context.Context) error
	Close() error
}

// Repositories groups the repositories that share one transaction.
type Repositories interface {
	Figures() FigureRepository
	Flashcards() FlashcardRepository
}

// Transactor runs fn inside a single transaction. The transaction commits when
// fn returns nil and rolls back otherwise.
type Transactor interface {
	InTx(ctx context.Context, fn func(repos Repositories) error) error
}

// Store is a Repositories whose operations can also be grouped into a transaction.
type Store interface {
	Repositories
	Transactor
}
