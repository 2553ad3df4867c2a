package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/edusync/edusync/core"
	"github.com/edusync/edusync/core/report"
)

type reportRepository struct {
	db *reportTable
}

func NewReportRepository(db *DB) report.Repository {
	return &reportRepository{db: db.reports}
}

func copyReport(rep *report.Report) report.Report {
	cp := *rep
	cp.Lines = make([]report.Line, len(rep.Lines))
	copy(cp.Lines, rep.Lines)
	return cp
}

func (repo *reportRepository) query() []report.Report {
	reports := make([]report.Report, 0, len(repo.db.table))
	for _, rep := range repo.db.table {
		reports = append(reports, copyReport(rep))
	}
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].CreatedAt.Equal(reports[j].CreatedAt) {
			return reports[i].Number < reports[j].Number
		}
		return reports[i].CreatedAt.Before(reports[j].CreatedAt)
	})
	return reports
}

func (repo *reportRepository) CreateReport(ctx context.Context, rep report.Report, exec ...core.DBExecutor) (report.Report, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rep.ID = uuid.NewString()
	cp := copyReport(&rep)
	repo.db.table[rep.ID] = &cp
	return rep, nil
}

func (repo *reportRepository) GetReportByID(ctx context.Context, id string, exec ...core.DBExecutor) (report.Report, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rep, ok := repo.db.table[id]; ok {
		return copyReport(rep), nil
	}
	return report.Report{}, report.ErrNotFound
}

func (repo *reportRepository) GetActiveReport(ctx context.Context, studentID, cohortID, periodID string, exec ...core.DBExecutor) (report.Report, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, rep := range repo.db.table {
		if rep.Student.ID == studentID && rep.CohortID == cohortID && rep.PeriodID == periodID && rep.State != report.StateArchived {
			return copyReport(rep), nil
		}
	}
	return report.Report{}, report.ErrNotFound
}

func (repo *reportRepository) QueryReports(ctx context.Context, filter *report.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]report.Report, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	reports := make([]report.Report, 0)
	for _, rep := range repo.query() {
		if filter != nil {
			if filter.StudentID != "" && rep.Student.ID != filter.StudentID {
				continue
			}
			if filter.CohortID != "" && rep.CohortID != filter.CohortID {
				continue
			}
			if filter.CourseID != "" && rep.CourseID != filter.CourseID {
				continue
			}
			if filter.PeriodID != "" && rep.PeriodID != filter.PeriodID {
				continue
			}
			if filter.State != "" && rep.State != filter.State {
				continue
			}
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

func (repo *reportRepository) UpdateReport(ctx context.Context, rep report.Report, exec ...core.DBExecutor) (report.Report, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[rep.ID]
	if !ok {
		return report.Report{}, report.ErrNotFound
	}
	rep.Lines = orig.Lines // lines are owned by ReplaceLines
	cp := copyReport(&rep)
	repo.db.table[rep.ID] = &cp
	return copyReport(&cp), nil
}

func (repo *reportRepository) ReplaceLines(ctx context.Context, reportID string, lines []report.Line, exec ...core.DBExecutor) ([]report.Line, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rep, ok := repo.db.table[reportID]
	if !ok {
		return nil, report.ErrNotFound
	}
	saved := make([]report.Line, 0, len(lines))
	for _, line := range lines {
		line.ID = uuid.NewString()
		line.ReportID = reportID
		saved = append(saved, line)
	}
	rep.Lines = make([]report.Line, len(saved))
	copy(rep.Lines, saved)
	return saved, nil
}

func (repo *reportRepository) SaveRankingSnapshots(ctx context.Context, reports []*report.Report, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, rep := range reports {
		orig, ok := repo.db.table[rep.ID]
		if !ok {
			return report.ErrNotFound
		}
		orig.CohortAverage = rep.CohortAverage
		orig.Rank = rep.Rank
		orig.CohortSize = rep.CohortSize

		for i := range rep.Lines {
			line := &rep.Lines[i]
			for j := range orig.Lines {
				if orig.Lines[j].ID == line.ID {
					orig.Lines[j].SubjectCohortAverage = line.SubjectCohortAverage
					orig.Lines[j].SubjectRank = line.SubjectRank
					break
				}
			}
		}
	}
	return nil
}

func (repo *reportRepository) DeleteReport(ctx context.Context, id string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return report.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *reportRepository) NextReportNumber(ctx context.Context, year int, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.seqs[year]++
	return repo.db.seqs[year], nil
}
