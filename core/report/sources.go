package report

import (
	"context"
	"time"

	"github.com/edusync/edusync/core"
)

// Read-only collaborator inputs. The engine consumes these and nothing else
// from the rest of the school system: cohort membership, subject
// coefficients, finalized assessment results and attendance records.

// Assessment is one graded activity's result for a student in a subject,
// already restricted to finalized evaluations by the source.
type Assessment struct {
	StudentID   string
	SubjectID   string
	CohortID    string
	Date        time.Time
	Kind        string // free-text evaluation-kind label, classified by ClassifyKind
	Coefficient float64
	Score       float64
	MaxScore    float64
}

// AssessmentSource yields the finalized assessment results for a student in
// a cohort whose evaluation date falls within [from, to].
type AssessmentSource interface {
	QueryFinalized(ctx context.Context, studentID, cohortID string, from, to time.Time, exec ...core.DBExecutor) ([]Assessment, error)
}

// Subject is an entry of the subject coefficient table for a course.
type Subject struct {
	ID          string
	Name        string
	Coefficient float64
}

// SubjectSource yields the subjects (and their coefficients) taught in a course.
type SubjectSource interface {
	QueryForCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Subject, error)
}

// Enrollment is one active (student, course) membership of a cohort.
type Enrollment struct {
	StudentID   string
	StudentName string
	CourseID    string
}

// EnrollmentSource yields the active cohort membership at computation time.
type EnrollmentSource interface {
	QueryActive(ctx context.Context, cohortID string, exec ...core.DBExecutor) ([]Enrollment, error)
}

// AttendanceRecord is one session's attendance entry for a student.
type AttendanceRecord struct {
	StudentID string
	Date      time.Time
	Present   bool
	Late      bool
}

// AttendanceSource yields a student's attendance records within [from, to].
type AttendanceSource interface {
	QueryForStudent(ctx context.Context, studentID string, from, to time.Time, exec ...core.DBExecutor) ([]AttendanceRecord, error)
}
