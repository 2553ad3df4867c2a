package report

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/edusync/edusync/core"
)

type (
	// StatsFilter scopes a statistics run; CohortID and PeriodID are the
	// usual pair, any field may be left empty to widen the scope.
	StatsFilter struct {
		CohortID string `query:"cohort_id"`
		PeriodID string `query:"period_id"`
		CourseID string `query:"course_id"`
		State    State  `query:"state" validate:"omitempty,reportstate"`
	}

	StudentStanding struct {
		ReportID    string  `json:"report_id"`
		StudentID   string  `json:"student_id"`
		StudentName string  `json:"student_name"`
		Average     float64 `json:"average"`
		Rank        int     `json:"rank"`
	}

	SubjectStats struct {
		SubjectID   string  `json:"subject_id"`
		SubjectName string  `json:"subject_name"`
		Mean        float64 `json:"mean"`
		Min         float64 `json:"min"`
		Max         float64 `json:"max"`
		Count       int     `json:"count"`
	}

	Stats struct {
		Total   int           `json:"total"`
		ByState map[State]int `json:"by_state"`

		// Mean over reports with a positive overall average.
		Mean float64 `json:"mean"`

		// TopStudents holds up to five reports at or above the excellence
		// threshold, best first; BottomStudents up to five strictly below
		// the passing threshold (zero averages excluded), worst first.
		TopStudents    []StudentStanding `json:"top_students"`
		BottomStudents []StudentStanding `json:"bottom_students"`

		Subjects []SubjectStats `json:"subjects"`
	}
)

const standingsLimit = 5

func (sf *StatsFilter) Validate(validate *validator.Validate) error {
	sf.CohortID = core.CleanString(sf.CohortID)
	sf.PeriodID = core.CleanString(sf.PeriodID)
	sf.CourseID = core.CleanString(sf.CourseID)
	sf.State = State(core.CleanString(string(sf.State), true /* lower */))
	return validate.Struct(sf)
}

// Statistics summarizes the reports matching the filter: state breakdown,
// cohort mean, best and worst standings and per-subject aggregates.
func (svc *Service) Statistics(ctx context.Context, filter StatsFilter) (Stats, error) {
	reports, err := svc.repo.QueryReports(ctx, &QueryFilter{
		CohortID: filter.CohortID,
		PeriodID: filter.PeriodID,
		CourseID: filter.CourseID,
		State:    filter.State,
	}, nil)
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying reports")
	}

	stats := Stats{
		Total:   len(reports),
		ByState: make(map[State]int, len(AllStates)),
	}
	for _, state := range AllStates {
		stats.ByState[state] = 0
	}

	var graded []StudentStanding
	var sum float64
	subjects := make(map[string]*SubjectStats)
	var subjectOrder []string

	for i := range reports {
		rep := &reports[i]
		stats.ByState[rep.State]++

		if rep.OverallAverage > 0 {
			sum += rep.OverallAverage
			graded = append(graded, StudentStanding{
				ReportID:    rep.ID,
				StudentID:   rep.Student.ID,
				StudentName: rep.Student.Name,
				Average:     rep.OverallAverage,
				Rank:        rep.Rank,
			})
		}

		for j := range rep.Lines {
			line := &rep.Lines[j]
			if line.NoData {
				continue
			}
			ss, ok := subjects[line.SubjectID]
			if !ok {
				ss = &SubjectStats{
					SubjectID:   line.SubjectID,
					SubjectName: line.SubjectName,
					Min:         line.Average,
					Max:         line.Average,
				}
				subjects[line.SubjectID] = ss
				subjectOrder = append(subjectOrder, line.SubjectID)
			}
			if line.Average < ss.Min {
				ss.Min = line.Average
			}
			if line.Average > ss.Max {
				ss.Max = line.Average
			}
			ss.Mean += line.Average // running sum; divided below
			ss.Count++
		}
	}

	if len(graded) > 0 {
		stats.Mean = sum / float64(len(graded))
	}

	sort.SliceStable(graded, func(i, j int) bool { return graded[i].Average > graded[j].Average })
	for _, st := range graded {
		if st.Average < remarkExcellentMin || len(stats.TopStudents) == standingsLimit {
			break
		}
		stats.TopStudents = append(stats.TopStudents, st)
	}
	for i := len(graded) - 1; i >= 0; i-- {
		st := graded[i]
		if st.Average >= remarkPassingMin || len(stats.BottomStudents) == standingsLimit {
			break
		}
		stats.BottomStudents = append(stats.BottomStudents, st)
	}

	sort.Strings(subjectOrder)
	for _, id := range subjectOrder {
		ss := subjects[id]
		ss.Mean /= float64(ss.Count)
		stats.Subjects = append(stats.Subjects, *ss)
	}
	return stats, nil
}

// SubjectAverages returns only the per-subject aggregates of Statistics.
func (svc *Service) SubjectAverages(ctx context.Context, filter StatsFilter) ([]SubjectStats, error) {
	stats, err := svc.Statistics(ctx, filter)
	if err != nil {
		return nil, err
	}
	return stats.Subjects, nil
}
