package jobstore

import (
	"context"
	"sync"

	"fasal/models"
)

// Mem is an in-memory Store with the same conditional-transition
// semantics as the Mongo implementation. Used in tests and local runs
// without a database.
type Mem struct {
	mu           sync.Mutex
	jobs         map[string]models.Job
	applications []models.Application
}

func NewMem() *Mem {
	return &Mem{jobs: make(map[string]models.Job)}
}

func (s *Mem) CreateJob(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.JobID] = *job
	return nil
}

func (s *Mem) GetJob(_ context.Context, jobID string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return &job, nil
}

func (s *Mem) ListJobs(_ context.Context, f Filter) ([]models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := []models.Job{}
	for _, job := range s.jobs {
		if f.JobID != "" && job.JobID != f.JobID {
			continue
		}
		if f.FarmerID != "" && job.FarmerID != f.FarmerID {
			continue
		}
		if f.Status != "" && job.Status != f.Status {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *Mem) TransitionStatus(_ context.Context, jobID, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status != from {
		return false, nil
	}
	job.Status = to
	s.jobs[jobID] = job
	return true, nil
}

func (s *Mem) SetStatus(_ context.Context, jobID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	job.Status = status
	s.jobs[jobID] = job
	return nil
}

func (s *Mem) CreateApplication(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applications = append(s.applications, *app)
	return nil
}

func (s *Mem) ListApplications(_ context.Context, jobID string) ([]models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	apps := []models.Application{}
	for _, app := range s.applications {
		if app.JobID == jobID {
			apps = append(apps, app)
		}
	}
	return apps, nil
}
