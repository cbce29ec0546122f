package port

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/titledoctor/pipeline-service/internal/domain/entity"
)

var (
	// ErrJobNotFound is returned when no record exists for the id.
	ErrJobNotFound = errors.New("job not found")

	// ErrVersionConflict is returned when a conditional write loses:
	// the stored version no longer matches the one the caller loaded.
	ErrVersionConflict = errors.New("job version conflict")
)

type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	// Update writes the whole record conditionally on job.Version and
	// bumps the version on success.
	Update(ctx context.Context, job *entity.Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	// ListStale returns non-terminal jobs not touched since the cutoff.
	ListStale(ctx context.Context, cutoff time.Time) ([]*entity.Job, error)
}
