package jobstore

import (
	"context"
	"errors"

	"fasal/models"
)

// ErrNotFound is returned when a job id has no row.
var ErrNotFound = errors.New("job not found")

// Filter narrows ListJobs. Zero fields are ignored.
type Filter struct {
	JobID    string
	FarmerID string
	Status   string
}

// Store is the persistence contract the dispatch engine depends on.
// TransitionStatus is the single operation the accept race relies upon:
// it must be one atomic conditional write against the backing store,
// never a read followed by a write.
type Store interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	ListJobs(ctx context.Context, f Filter) ([]models.Job, error)

	// TransitionStatus sets the job's status to "to" only if it is still
	// "from", reporting whether the write took effect.
	TransitionStatus(ctx context.Context, jobID, from, to string) (bool, error)

	// SetStatus is the plain administrative write; it must not be used
	// for transitions that participate in the accept race.
	SetStatus(ctx context.Context, jobID, status string) error

	CreateApplication(ctx context.Context, app *models.Application) error
	ListApplications(ctx context.Context, jobID string) ([]models.Application, error)
}
