package core

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor runs queries; satisfied by *sqlx.DB and *sqlx.Tx, letting
	// repository methods run inside or outside a transaction transparently.
	DBExecutor interface {
		sqlx.ExtContext

		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	}

	DB interface {
		DBExecutor

		BeginTxx(ctx context.Context, opts *sql.TxOptions) (DBTransactor, error)
	}

	DBTransactor interface {
		DBExecutor

		Commit() error
		Rollback() error
	}
)

type sqlxDB struct {
	*sqlx.DB
}

// WrapDB adapts an open sqlx handle to the DB seam.
func WrapDB(db *sqlx.DB) DB {
	return sqlxDB{DB: db}
}

func (d sqlxDB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (DBTransactor, error) {
	tx, err := d.DB.BeginTxx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
