// Package inmemdb provides in-memory repositories used by tests.
package inmemdb

import (
	"context"
	"database/sql"
	"sync"

	"github.com/edusync/edusync/core"
	"github.com/edusync/edusync/core/period"
	"github.com/edusync/edusync/core/report"
)

type (
	DB struct {
		// repositories here never touch the executor; it only satisfies
		// the core.DB seam for services that open transactions.
		core.DBExecutor

		periods *periodTable
		reports *reportTable

		assessments []report.Assessment
		subjects    []report.Subject
		enrollments []report.Enrollment
		attendance  []report.AttendanceRecord
		srcMutex    sync.RWMutex
	}

	periodTable struct {
		mutex sync.RWMutex
		table map[string]*period.GradingPeriod
	}

	reportTable struct {
		mutex sync.RWMutex
		table map[string]*report.Report
		seqs  map[int]int
	}
)

func Open() (*DB, error) {
	db := &DB{
		periods: &periodTable{table: make(map[string]*period.GradingPeriod)},
		reports: &reportTable{table: make(map[string]*report.Report), seqs: make(map[int]int)},
	}
	return db, nil
}

func (db *DB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (core.DBTransactor, error) {
	return noopTx{}, nil
}

type noopTx struct {
	core.DBExecutor
}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }
