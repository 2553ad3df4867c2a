package report

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/edusync/edusync/core"
)

// State is a report's position in its lifecycle:
// draft -> calculated -> validated -> published -> archived.
type State string

const (
	StateDraft      State = "draft"
	StateCalculated State = "calculated"
	StateValidated  State = "validated"
	StatePublished  State = "published"
	StateArchived   State = "archived"
)

var AllStates = []State{StateDraft, StateCalculated, StateValidated, StatePublished, StateArchived}

// RankedStates are the states whose reports take part in cohort ranking
// and cohort means.
var RankedStates = []State{StateCalculated, StateValidated, StatePublished}

func (s State) IsValid() bool {
	switch s {
	case StateDraft, StateCalculated, StateValidated, StatePublished, StateArchived:
		return true
	default:
		return false
	}
}

// IsRanked reports whether a report in this state qualifies for ranking.
func (s State) IsRanked() bool {
	return s == StateCalculated || s == StateValidated || s == StatePublished
}

// Decision is the class council's end-of-period ruling.
type Decision string

const (
	DecisionPromotion     Decision = "promotion"
	DecisionRetention     Decision = "retention"
	DecisionReorientation Decision = "reorientation"
	DecisionExclusion     Decision = "exclusion"
	DecisionPending       Decision = "pending"
)

func (d Decision) IsValid() bool {
	switch d {
	case DecisionPromotion, DecisionRetention, DecisionReorientation, DecisionExclusion, DecisionPending:
		return true
	default:
		return false
	}
}

// Report is the academic summary document for one student, cohort and
// grading period. It is owned by the lifecycle Service; its Lines are owned
// by the Report and replaced wholesale on every (re)calculation.
type Report struct {
	ID       string `json:"id"`
	Number   string `json:"number"`
	Student  Actor  `json:"student"`
	CohortID string `json:"cohort_id"`
	CourseID string `json:"course_id"`
	PeriodID string `json:"period_id"`

	State State `json:"state"`

	// Aggregation outputs; authoritative once State is at least calculated.
	OverallAverage float64 `json:"overall_average"`

	// Denormalized cohort snapshots, refreshed by the ranking service.
	CohortAverage float64 `json:"cohort_average"`
	Rank          int     `json:"rank"`
	CohortSize    int     `json:"cohort_size"`

	OverallRemark string   `json:"overall_remark"`
	Decision      Decision `json:"decision"`

	// Attendance figures over the period window.
	TotalSessions     int     `json:"total_sessions"`
	TotalAbsences     int     `json:"total_absences"`
	TotalLateness     int     `json:"total_lateness"`
	PresenceRate      float64 `json:"presence_rate"`
	UnexcusedAbsences int     `json:"unexcused_absences"`
	ExcusedAbsences   int     `json:"excused_absences"`

	// ManuallyEdited marks reports whose lines or overall average were
	// hand-set by an operator; Calculate refuses to overwrite them unless
	// explicitly forced.
	ManuallyEdited bool `json:"manually_edited"`

	TeacherSignature  string `json:"teacher_signature"`
	DirectorSignature string `json:"director_signature"`
	ParentSignature   string `json:"parent_signature"`

	CreatedBy   string `json:"created_by"`
	ValidatedBy string `json:"validated_by"`
	PublishedBy string `json:"published_by"`

	CreatedAt   time.Time `json:"created_at"`   // UTC
	UpdatedAt   time.Time `json:"updated_at"`   // UTC
	FinalizedAt time.Time `json:"finalized_at"` // UTC; zero until validated

	Lines []Line `json:"lines"`
}

// Actor is the minimal identity the engine keeps about people referenced by
// a report. Identity proper lives in an external system.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HasLine reports whether the report carries a line for the given subject.
func (r *Report) HasLine(subjectID string) bool {
	for i := range r.Lines {
		if r.Lines[i].SubjectID == subjectID {
			return true
		}
	}
	return false
}

// Line holds one subject's aggregated results within a report.
type Line struct {
	ID       string `json:"id"`
	ReportID string `json:"report_id"`

	SubjectID   string `json:"subject_id"`
	SubjectName string `json:"subject_name"`

	// Per-kind bucket averages on the common /20 scale (descriptive only).
	Homework    float64 `json:"homework"`
	Composition float64 `json:"composition"`
	Test        float64 `json:"test"`
	Oral        float64 `json:"oral"`
	Practical   float64 `json:"practical"`

	// Average is the coefficient-weighted subject average; the single
	// authoritative number that propagates into the overall average.
	Average     float64 `json:"average"`
	Coefficient float64 `json:"coefficient"`

	// Denormalized subject-level cohort snapshots.
	SubjectCohortAverage float64 `json:"subject_cohort_average"`
	SubjectRank          int     `json:"subject_rank"`

	EvaluationCount int     `json:"evaluation_count"`
	MinScore        float64 `json:"min_score"`
	MaxScore        float64 `json:"max_score"`

	// NoData marks a line produced with zero finalized assessments in the
	// period (production mode yields Average 0 rather than fabricated marks).
	NoData bool `json:"no_data"`

	Remark string `json:"remark"`
}

// NewReport contains information needed to create a new Report.
type NewReport struct {
	StudentID   string `json:"student_id" validate:"required"`
	StudentName string `json:"student_name"`
	CohortID    string `json:"cohort_id" validate:"required"`
	CourseID    string `json:"course_id" validate:"required"`
	PeriodID    string `json:"period_id" validate:"required"`

	OverallRemark     string `json:"overall_remark"`
	UnexcusedAbsences int    `json:"unexcused_absences" validate:"min=0"`
	ExcusedAbsences   int    `json:"excused_absences" validate:"min=0"`
	Lateness          int    `json:"lateness" validate:"min=0"`

	CreatedBy string `json:"created_by"`

	// Optional initial lines (operator-entered reports).
	Lines []NewLine `json:"lines" validate:"omitempty,dive"`
}

func (nr *NewReport) Validate(validate *validator.Validate) error {
	nr.StudentID = core.CleanString(nr.StudentID)
	nr.StudentName = core.CleanString(nr.StudentName)
	nr.CohortID = core.CleanString(nr.CohortID)
	nr.CourseID = core.CleanString(nr.CourseID)
	nr.PeriodID = core.CleanString(nr.PeriodID)
	return validate.Struct(nr)
}

// NewLine is one subject's worth of operator-entered results.
type NewLine struct {
	SubjectID   string  `json:"subject_id" validate:"required"`
	SubjectName string  `json:"subject_name"`
	Homework    float64 `json:"homework" validate:"min=0,max=20"`
	Composition float64 `json:"composition" validate:"min=0,max=20"`
	Test        float64 `json:"test" validate:"min=0,max=20"`
	Oral        float64 `json:"oral" validate:"min=0,max=20"`
	Practical   float64 `json:"practical" validate:"min=0,max=20"`
	Average     float64 `json:"average" validate:"min=0,max=20"`
	Coefficient float64 `json:"coefficient" validate:"min=0"`
	Remark      string  `json:"remark"`
}

func (nl NewLine) line(reportID string) Line {
	return Line{
		ReportID:    reportID,
		SubjectID:   nl.SubjectID,
		SubjectName: nl.SubjectName,
		Homework:    nl.Homework,
		Composition: nl.Composition,
		Test:        nl.Test,
		Oral:        nl.Oral,
		Practical:   nl.Practical,
		Average:     nl.Average,
		Coefficient: nl.Coefficient,
		Remark:      nl.Remark,
	}
}

// ManualSave is the operator override path: it may replace the whole line
// set and/or hand-set the overall average, and always marks the report as
// manually edited. It is distinct from a recompute request on purpose.
type ManualSave struct {
	OverallRemark     *string  `json:"overall_remark"`
	Decision          *string  `json:"decision" validate:"omitempty,decision"`
	UnexcusedAbsences *int     `json:"unexcused_absences" validate:"omitempty,min=0"`
	ExcusedAbsences   *int     `json:"excused_absences" validate:"omitempty,min=0"`
	Lateness          *int     `json:"lateness" validate:"omitempty,min=0"`
	OverallAverage    *float64 `json:"overall_average" validate:"omitempty,min=0,max=20"`
	Lines             []NewLine `json:"lines" validate:"omitempty,dive"`
}

func (ms *ManualSave) Validate(validate *validator.Validate) error {
	return validate.Struct(ms)
}

// CalculateOptions controls a recompute request.
type CalculateOptions struct {
	// Force recomputes even over manual edits, clearing the flag.
	Force bool `json:"force"`
	Actor string `json:"actor"`
}

// QueryFilter narrows report listings. Fields combine with AND.
type QueryFilter struct {
	StudentID string `query:"student_id"`
	CohortID  string `query:"cohort_id"`
	CourseID  string `query:"course_id"`
	PeriodID  string `query:"period_id"`
	State     State  `query:"state" validate:"omitempty,reportstate"`
}

func (qf *QueryFilter) Validate(validate *validator.Validate) error {
	qf.Clean()
	return validate.Struct(qf)
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentID == "" && qf.CohortID == "" && qf.CourseID == "" && qf.PeriodID == "" && qf.State == ""
}

func (qf *QueryFilter) Clean() {
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.CohortID = core.CleanString(qf.CohortID)
	qf.CourseID = core.CleanString(qf.CourseID)
	qf.PeriodID = core.CleanString(qf.PeriodID)
	qf.State = State(core.CleanString(string(qf.State), true /* lower */))
}
