package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/edusync/edusync/core"
	"github.com/edusync/edusync/core/period"
)

type periodRepository struct {
	db *periodTable
}

func NewPeriodRepository(db *DB) period.Repository {
	return &periodRepository{db: db.periods}
}

func (repo *periodRepository) query() []period.GradingPeriod {
	periods := make([]period.GradingPeriod, 0, len(repo.db.table))
	for _, p := range repo.db.table {
		periods = append(periods, *p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].StartDate.Before(periods[j].StartDate) })
	return periods
}

func (repo *periodRepository) CheckCodeUniqueness(ctx context.Context, code string, exec ...core.DBExecutor) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, p := range repo.db.table {
		if p.Code == code {
			return period.ErrCodeExists
		}
	}
	return nil
}

func (repo *periodRepository) CreatePeriod(ctx context.Context, p period.GradingPeriod, exec ...core.DBExecutor) (period.GradingPeriod, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p.ID = uuid.NewString()
	repo.db.table[p.ID] = &p
	return p, nil
}

func (repo *periodRepository) GetPeriodByID(ctx context.Context, id string, exec ...core.DBExecutor) (period.GradingPeriod, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.table[id]; ok {
		return *p, nil
	}
	return period.GradingPeriod{}, period.ErrNotFound
}

func (repo *periodRepository) QueryPeriods(ctx context.Context, filter *period.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]period.GradingPeriod, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	periods := make([]period.GradingPeriod, 0)
	for _, p := range repo.query() {
		if filter != nil {
			if filter.SchoolYear != "" && p.SchoolYear != filter.SchoolYear {
				continue
			}
			if filter.EducationLevel != "" && p.EducationLevel != filter.EducationLevel {
				continue
			}
			if filter.IsActive != nil && p.IsActive != *filter.IsActive {
				continue
			}
		}
		periods = append(periods, p)
	}
	return periods, nil
}
