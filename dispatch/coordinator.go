package dispatch

import (
	"context"
	"errors"
	"log"
	"time"

	"fasal/geomatch"
	"fasal/jobstore"
	"fasal/models"
	"fasal/utils"
)

var (
	ErrNotFound  = jobstore.ErrNotFound
	ErrForbidden = errors.New("not the job owner")
	ErrConflict  = errors.New("job state does not allow this")
)

// AcceptOutcome is the tri-state result of an accept attempt. Losing
// the race is a normal outcome here, not an error.
type AcceptOutcome int

const (
	AcceptOK AcceptOutcome = iota
	AcceptTaken
	AcceptNotFound
)

// CandidateDirectory is the read-only view over worker records the
// coordinator matches against.
type CandidateDirectory interface {
	Pool(ctx context.Context, hireKind string) ([]models.Candidate, error)
	Get(ctx context.Context, userID string) (*models.Candidate, error)
}

// Publisher delivers realtime events. Best effort: the coordinator
// never fails a state change over a publish error.
type Publisher interface {
	PublishToJob(jobID, name string, data interface{}) error
	PublishToUser(userID, name string, data interface{}) error
}

// OfferLog remembers which candidates were offered a job, so the
// losers can be told the job is taken without polling.
type OfferLog interface {
	Record(jobID string, userIDs []string) error
	Recipients(jobID string) ([]string, error)
}

// Coordinator glues the matcher, the directory, the job store and the
// realtime bus into the dispatch operations. It holds no locks of its
// own; the accept race is settled entirely by the store's conditional
// transition.
type Coordinator struct {
	Store     jobstore.Store
	Directory CandidateDirectory
	Bus       Publisher
	Offers    OfferLog
}

func NewCoordinator(store jobstore.Store, dir CandidateDirectory, bus Publisher, offers OfferLog) *Coordinator {
	return &Coordinator{Store: store, Directory: dir, Bus: bus, Offers: offers}
}

// JobInput is the farmer-supplied part of a new job. The owner id is
// never taken from the payload.
type JobInput struct {
	WorkType      string   `json:"workType" validate:"required"`
	HireKind      string   `json:"hireKind" validate:"required,oneof=individual group"`
	WorkersNeeded int      `json:"workersNeeded" validate:"required,min=1"`
	PayPerDay     float64  `json:"payPerDay" validate:"required,gt=0"`
	Latitude      *float64 `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Longitude     *float64 `json:"lon" validate:"omitempty,gte=-180,lte=180"`
	Address       string   `json:"address"`
}

// CreateJobAndOffer persists a pending job owned by farmerID and fans
// offers out to the matched candidates. Fan-out failures never fail
// the creation.
func (c *Coordinator) CreateJobAndOffer(ctx context.Context, farmerID string, in JobInput) (*models.Job, error) {
	job := &models.Job{
		JobID:         utils.GenerateJobID(),
		FarmerID:      farmerID,
		WorkType:      in.WorkType,
		HireKind:      in.HireKind,
		WorkersNeeded: in.WorkersNeeded,
		PayPerDay:     in.PayPerDay,
		Latitude:      in.Latitude,
		Longitude:     in.Longitude,
		Address:       in.Address,
		Status:        models.JobPending,
		CreatedAt:     time.Now(),
	}

	if err := c.Store.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	c.fanOut(ctx, job, false)
	return job, nil
}

// fanOut runs the matcher and pushes an offer to each ranked
// candidate's private room. Fire-and-forget by contract.
func (c *Coordinator) fanOut(ctx context.Context, job *models.Job, reopened bool) {
	pool, err := c.Directory.Pool(ctx, job.HireKind)
	if err != nil {
		log.Printf("offer fan-out for %s skipped, directory unavailable: %v", job.JobID, err)
		return
	}

	matches := geomatch.Rank(job, pool)
	if len(matches) == 0 {
		return
	}

	recipients := make([]string, 0, len(matches))
	for _, m := range matches {
		recipients = append(recipients, m.Candidate.UserID)
	}
	if err := c.Offers.Record(job.JobID, recipients); err != nil {
		log.Printf("offer log for %s not recorded: %v", job.JobID, err)
	}

	for _, m := range matches {
		payload := models.OfferPayload{
			JobID:         job.JobID,
			WorkType:      job.WorkType,
			PayPerDay:     job.PayPerDay,
			DistanceLabel: m.DistanceLabel(),
			FarmAddress:   job.Address,
			Reopened:      reopened,
		}
		if err := c.Bus.PublishToUser(m.Candidate.UserID, models.EventOffer, payload); err != nil {
			log.Printf("offer to %s for %s dropped: %v", m.Candidate.UserID, job.JobID, err)
		}
	}
}

// AttemptAccept is safe to call concurrently for the same job: the
// conditional transition inside the store admits exactly one winner,
// and the winning application row is created only on that path.
func (c *Coordinator) AttemptAccept(ctx context.Context, jobID, candidateID string) (AcceptOutcome, error) {
	candidate, err := c.Directory.Get(ctx, candidateID)
	if err != nil {
		return 0, err
	}
	if candidate == nil {
		return AcceptNotFound, nil
	}

	job, err := c.Store.GetJob(ctx, jobID)
	if err == jobstore.ErrNotFound {
		return AcceptNotFound, nil
	}
	if err != nil {
		return 0, err
	}

	// Fast path: no write when the race is already over.
	if job.Status != models.JobPending {
		return AcceptTaken, nil
	}

	won, err := c.Store.TransitionStatus(ctx, jobID, models.JobPending, models.JobMatched)
	if err != nil {
		return 0, err
	}
	if !won {
		return AcceptTaken, nil
	}

	app := &models.Application{
		ApplicationID: utils.GenerateApplicationID(),
		JobID:         jobID,
		CandidateID:   candidateID,
		Status:        models.ApplicationAccepted,
		CreatedAt:     time.Now(),
	}
	if err := c.Store.CreateApplication(ctx, app); err != nil {
		// Roll the status back so the job is not stuck matched with no
		// winning application.
		if _, rbErr := c.Store.TransitionStatus(ctx, jobID, models.JobMatched, models.JobPending); rbErr != nil {
			log.Printf("rollback of %s failed: %v", jobID, rbErr)
		}
		return 0, err
	}

	// Events go out only after both writes are durable.
	if err := c.Bus.PublishToJob(jobID, models.EventAccepted, models.AcceptedPayload{
		JobID:       jobID,
		CandidateID: candidateID,
	}); err != nil {
		log.Printf("accepted event for %s dropped: %v", jobID, err)
	}
	c.notifyLosers(jobID, candidateID)

	return AcceptOK, nil
}

// notifyLosers tells every other offered candidate the job is gone so
// their clients can drop it without a round trip.
func (c *Coordinator) notifyLosers(jobID, winnerID string) {
	recipients, err := c.Offers.Recipients(jobID)
	if err != nil {
		log.Printf("offer recipients for %s unavailable: %v", jobID, err)
		return
	}
	for _, uid := range recipients {
		if uid == winnerID {
			continue
		}
		if err := c.Bus.PublishToUser(uid, models.EventTaken, models.TakenPayload{JobID: jobID}); err != nil {
			log.Printf("taken event to %s for %s dropped: %v", uid, jobID, err)
		}
	}
}

// CancelJob moves a non-terminal job to cancelled. Owner only.
// Cancelling an already cancelled job is a no-op.
func (c *Coordinator) CancelJob(ctx context.Context, jobID, farmerID, farmerName string) error {
	job, err := c.Store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.FarmerID != farmerID {
		return ErrForbidden
	}
	if job.Status == models.JobCancelled {
		return nil
	}
	if job.Status == models.JobCompleted {
		return ErrConflict
	}

	if err := c.Store.SetStatus(ctx, jobID, models.JobCancelled); err != nil {
		return err
	}

	payload := models.CancelledPayload{JobID: jobID, FarmerName: farmerName, WorkType: job.WorkType}
	if err := c.Bus.PublishToJob(jobID, models.EventCancelled, payload); err != nil {
		log.Printf("cancelled event for %s dropped: %v", jobID, err)
	}
	recipients, err := c.Offers.Recipients(jobID)
	if err != nil {
		log.Printf("offer recipients for %s unavailable: %v", jobID, err)
		return nil
	}
	for _, uid := range recipients {
		if err := c.Bus.PublishToUser(uid, models.EventCancelled, payload); err != nil {
			log.Printf("cancelled event to %s for %s dropped: %v", uid, jobID, err)
		}
	}
	return nil
}

// Reopen un-assigns a matched job: matched -> pending through the
// conditional transition, then a fresh offer round tagged as a
// re-open. A job that is not currently matched reopens nothing.
func (c *Coordinator) Reopen(ctx context.Context, jobID, farmerID string) error {
	job, err := c.Store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.FarmerID != farmerID {
		return ErrForbidden
	}

	won, err := c.Store.TransitionStatus(ctx, jobID, models.JobMatched, models.JobPending)
	if err != nil {
		return err
	}
	if !won {
		return ErrConflict
	}

	job.Status = models.JobPending
	c.fanOut(ctx, job, true)
	return nil
}

// UpdateStatus is the administrative transition (matched -> completed
// and the like). It does not participate in the accept race, so a
// plain write is fine.
func (c *Coordinator) UpdateStatus(ctx context.Context, jobID, status string) error {
	switch status {
	case models.JobPending, models.JobMatched, models.JobCompleted, models.JobCancelled:
	default:
		return ErrConflict
	}
	return c.Store.SetStatus(ctx, jobID, status)
}

// ListJobs passes filters through to the store.
func (c *Coordinator) ListJobs(ctx context.Context, f jobstore.Filter) ([]models.Job, error) {
	return c.Store.ListJobs(ctx, f)
}

// Arrival publishes a worker's arrival notice to the job room.
func (c *Coordinator) Arrival(ctx context.Context, jobID, candidateID string) error {
	if _, err := c.Store.GetJob(ctx, jobID); err != nil {
		return err
	}
	return c.Bus.PublishToJob(jobID, models.EventArrival, models.ArrivalPayload{
		JobID:       jobID,
		CandidateID: candidateID,
	})
}
