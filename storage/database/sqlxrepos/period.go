package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/edusync/edusync/core"
	"github.com/edusync/edusync/core/period"
)

type periodRow struct {
	ID             string    `db:"id"`
	Name           string    `db:"name"`
	Code           string    `db:"code"`
	StartDate      time.Time `db:"start_date"`
	EndDate        time.Time `db:"end_date"`
	SchoolYear     string    `db:"school_year"`
	EducationLevel string    `db:"education_level"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (row periodRow) period() period.GradingPeriod {
	return period.GradingPeriod{
		ID:             row.ID,
		Name:           row.Name,
		Code:           row.Code,
		StartDate:      row.StartDate,
		EndDate:        row.EndDate,
		SchoolYear:     row.SchoolYear,
		EducationLevel: row.EducationLevel,
		IsActive:       row.IsActive,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

type periodRepository struct {
	db *sqlx.DB
}

var _ period.Repository = (*periodRepository)(nil)

func NewPeriodRepository(db *sqlx.DB) *periodRepository {
	return &periodRepository{db: db}
}

func (repo *periodRepository) getExec(exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 {
		return exec[0]
	}
	return repo.db
}

func (repo *periodRepository) CheckCodeUniqueness(ctx context.Context, code string, exec ...core.DBExecutor) error {
	var exists bool
	err := repo.getExec(exec).GetContext(
		ctx, &exists, `SELECT EXISTS (SELECT 1 FROM grading_period WHERE code = $1)`, code)
	if err != nil {
		return errors.Wrap(err, "checking code uniqueness")
	}
	if exists {
		return period.ErrCodeExists
	}
	return nil
}

func (repo *periodRepository) CreatePeriod(ctx context.Context, per period.GradingPeriod, exec ...core.DBExecutor) (period.GradingPeriod, error) {
	per.ID = uuid.NewString()
	row := periodRow{
		ID:             per.ID,
		Name:           per.Name,
		Code:           per.Code,
		StartDate:      per.StartDate,
		EndDate:        per.EndDate,
		SchoolYear:     per.SchoolYear,
		EducationLevel: per.EducationLevel,
		IsActive:       per.IsActive,
		CreatedAt:      per.CreatedAt,
		UpdatedAt:      per.UpdatedAt,
	}
	_, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), `
		INSERT INTO grading_period (id, name, code, start_date, end_date, school_year, education_level, is_active, created_at, updated_at)
		VALUES (:id, :name, :code, :start_date, :end_date, :school_year, :education_level, :is_active, :created_at, :updated_at)`, row)
	if err != nil {
		return period.GradingPeriod{}, errors.Wrap(err, "inserting period")
	}
	return per, nil
}

func (repo *periodRepository) GetPeriodByID(ctx context.Context, id string, exec ...core.DBExecutor) (period.GradingPeriod, error) {
	var row periodRow
	err := repo.getExec(exec).GetContext(ctx, &row, `SELECT * FROM grading_period WHERE id = $1`, id)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return period.GradingPeriod{}, period.ErrNotFound
		}
		return period.GradingPeriod{}, errors.Wrap(err, "getting period")
	}
	return row.period(), nil
}

func (repo *periodRepository) QueryPeriods(ctx context.Context, filter *period.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]period.GradingPeriod, error) {
	query := `SELECT * FROM grading_period`
	var clauses []string
	var args []interface{}

	if filter != nil {
		if filter.SchoolYear != "" {
			args = append(args, filter.SchoolYear)
			clauses = append(clauses, "school_year = $"+itoa(len(args)))
		}
		if filter.EducationLevel != "" {
			args = append(args, filter.EducationLevel)
			clauses = append(clauses, "education_level = $"+itoa(len(args)))
		}
		if filter.IsActive != nil {
			args = append(args, *filter.IsActive)
			clauses = append(clauses, "is_active = $"+itoa(len(args)))
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += orderBy(ordering, "start_date ASC")

	var rows []periodRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying periods")
	}
	periods := make([]period.GradingPeriod, 0, len(rows))
	for _, row := range rows {
		periods = append(periods, row.period())
	}
	return periods, nil
}
