package period

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/edusync/edusync/core"
)

// Education levels a grading period may be scoped to.
const (
	LevelPreschool    = "preschool"
	LevelPrimary      = "primary"
	LevelMiddleSchool = "middle_school"
	LevelHighSchool   = "high_school"
)

var Levels = []string{LevelPreschool, LevelPrimary, LevelMiddleSchool, LevelHighSchool}

// GradingPeriod is a bounded time window (a term/trimester) against which
// assessments and reports are scoped.
type GradingPeriod struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Code           string    `json:"code"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	SchoolYear     string    `json:"school_year"`
	EducationLevel string    `json:"education_level"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

// Contains reports whether t falls within the period window (inclusive).
func (p GradingPeriod) Contains(t time.Time) bool {
	return !t.Before(p.StartDate) && !t.After(p.EndDate)
}

// NewPeriod contains information needed to create a new GradingPeriod.
type NewPeriod struct {
	Name           string    `json:"name" validate:"required"`
	Code           string    `json:"code" validate:"required"`
	StartDate      time.Time `json:"start_date" validate:"required"`
	EndDate        time.Time `json:"end_date" validate:"required"`
	SchoolYear     string    `json:"school_year" validate:"required"`
	EducationLevel string    `json:"education_level" validate:"required,educationlevel"`
}

func (np *NewPeriod) Validate(validate *validator.Validate) error {
	np.Name = core.CleanString(np.Name)
	np.Code = core.CleanString(np.Code)
	np.SchoolYear = core.CleanString(np.SchoolYear)
	np.EducationLevel = core.CleanString(np.EducationLevel, true /* lower */)

	if err := validate.Struct(np); err != nil {
		return err
	}
	if !np.StartDate.Before(np.EndDate) {
		return core.NewValidationError(ErrInvalidDateWindow, core.FieldError{
			Field: "end_date", Error: ErrInvalidDateWindow.Error(),
		})
	}
	return nil
}

// QueryFilter narrows period listings.
type QueryFilter struct {
	SchoolYear     string `query:"school_year"`
	EducationLevel string `query:"education_level"`
	IsActive       *bool  `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.SchoolYear == "" && qf.EducationLevel == "" && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.SchoolYear = core.CleanString(qf.SchoolYear)
	qf.EducationLevel = core.CleanString(qf.EducationLevel, true /* lower */)
}
