package period

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/edusync/edusync/core"
)

var (
	// errors
	ErrNotFound          = errors.New("grading period not found")
	ErrCodeExists        = errors.New("a grading period with this code already exists")
	ErrInvalidDateWindow = errors.New("the end date must be after the start date")
)

type (
	Repository interface {
		CheckCodeUniqueness(ctx context.Context, code string, exec ...core.DBExecutor) error
		CreatePeriod(ctx context.Context, p GradingPeriod, exec ...core.DBExecutor) (GradingPeriod, error)
		GetPeriodByID(ctx context.Context, id string, exec ...core.DBExecutor) (GradingPeriod, error)
		QueryPeriods(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]GradingPeriod, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, np NewPeriod) (GradingPeriod, error) {
	if err := svc.repo.CheckCodeUniqueness(ctx, np.Code); err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return GradingPeriod{}, core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return GradingPeriod{}, err
	}

	now := time.Now().UTC()
	p := GradingPeriod{
		Name:           np.Name,
		Code:           np.Code,
		StartDate:      np.StartDate,
		EndDate:        np.EndDate,
		SchoolYear:     np.SchoolYear,
		EducationLevel: np.EducationLevel,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return svc.repo.CreatePeriod(ctx, p)
}

func (svc *Service) GetByID(ctx context.Context, id string) (GradingPeriod, error) {
	return svc.repo.GetPeriodByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]GradingPeriod, error) {
	return svc.repo.QueryPeriods(ctx, filter, ordering)
}
