package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"fasal/jobstore"
	"fasal/models"
)

// --- test doubles -------------------------------------------------

type fakeDirectory struct {
	pool []models.Candidate
}

func (d *fakeDirectory) Pool(_ context.Context, hireKind string) ([]models.Candidate, error) {
	role := models.RoleWorker
	if hireKind == models.HireGroup {
		role = models.RoleLeader
	}
	var out []models.Candidate
	for _, c := range d.pool {
		if c.Role == role && (c.Status == models.StatusAvailable || c.Status == models.StatusOnline) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (d *fakeDirectory) Get(_ context.Context, userID string) (*models.Candidate, error) {
	for _, c := range d.pool {
		if c.UserID == userID {
			cc := c
			return &cc, nil
		}
	}
	return nil, nil
}

type publishedEvent struct {
	Room string
	Name string
	Data interface{}
}

type recorderBus struct {
	mu     sync.Mutex
	events []publishedEvent
	fail   bool
}

func (b *recorderBus) PublishToJob(jobID, name string, data interface{}) error {
	return b.record("job:"+jobID, name, data)
}

func (b *recorderBus) PublishToUser(userID, name string, data interface{}) error {
	return b.record("user:"+userID, name, data)
}

func (b *recorderBus) record(room, name string, data interface{}) error {
	if b.fail {
		return errors.New("bus down")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, publishedEvent{Room: room, Name: name, Data: data})
	return nil
}

func (b *recorderBus) byName(name string) []publishedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []publishedEvent
	for _, e := range b.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

type memOfferLog struct {
	mu     sync.Mutex
	offers map[string][]string
}

func newMemOfferLog() *memOfferLog {
	return &memOfferLog{offers: make(map[string][]string)}
}

func (l *memOfferLog) Record(jobID string, userIDs []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.offers[jobID] = append(l.offers[jobID], userIDs...)
	return nil
}

func (l *memOfferLog) Recipients(jobID string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.offers[jobID]...), nil
}

func fp(v float64) *float64 { return &v }

func worker(id string, lat, lon float64, skills string) models.Candidate {
	return models.Candidate{
		UserID: id,
		Role:   models.RoleWorker,
		Status: models.StatusAvailable,
		Latitude: fp(lat), Longitude: fp(lon),
		Skills: skills,
	}
}

func testCoordinator(pool ...models.Candidate) (*Coordinator, *recorderBus, *memOfferLog) {
	bus := &recorderBus{}
	offers := newMemOfferLog()
	c := NewCoordinator(jobstore.NewMem(), &fakeDirectory{pool: pool}, bus, offers)
	return c, bus, offers
}

var harvestInput = JobInput{
	WorkType:      "harvesting",
	HireKind:      models.HireIndividual,
	WorkersNeeded: 1,
	PayPerDay:     500,
	Latitude:      fp(17.3850),
	Longitude:     fp(78.4867),
	Address:       "Village Rd farm gate",
}

// --- tests --------------------------------------------------------

func TestCreateJobAndOfferFanOut(t *testing.T) {
	ctx := context.Background()
	near := worker("near", 17.3860, 78.4876, `["harvesting"]`)
	far := worker("far", 17.5000, 78.6000, `["harvesting"]`)
	wrongSkill := worker("wrongSkill", 17.3850, 78.4867, `["irrigation"]`)

	c, bus, offers := testCoordinator(near, far, wrongSkill)

	job, err := c.CreateJobAndOffer(ctx, "farmer1", harvestInput)
	if err != nil {
		t.Fatal(err)
	}
	if job.FarmerID != "farmer1" || job.Status != models.JobPending {
		t.Fatalf("unexpected job %+v", job)
	}

	got := bus.byName(models.EventOffer)
	if len(got) != 1 || got[0].Room != "user:near" {
		t.Fatalf("expected a single offer to near, got %+v", got)
	}

	recipients, _ := offers.Recipients(job.JobID)
	if len(recipients) != 1 || recipients[0] != "near" {
		t.Fatalf("offer log mismatch: %v", recipients)
	}
}

func TestCreateJobSucceedsWhenBusDown(t *testing.T) {
	ctx := context.Background()
	c, bus, _ := testCoordinator(worker("w", 17.3850, 78.4867, ""))
	bus.fail = true

	job, err := c.CreateJobAndOffer(ctx, "farmer1", harvestInput)
	if err != nil {
		t.Fatalf("job creation must not fail on publish errors: %v", err)
	}

	stored, err := c.Store.GetJob(ctx, job.JobID)
	if err != nil || stored.Status != models.JobPending {
		t.Fatalf("job not persisted: %v %+v", err, stored)
	}
}

func TestAttemptAcceptSingleWinner(t *testing.T) {
	ctx := context.Background()

	const n = 32
	pool := make([]models.Candidate, 0, n)
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := "w" + string(rune('A'+i))
		pool = append(pool, worker(id, 17.3850, 78.4867, `["harvesting"]`))
		ids = append(ids, id)
	}

	c, bus, _ := testCoordinator(pool...)
	job, err := c.CreateJobAndOffer(ctx, "farmer1", harvestInput)
	if err != nil {
		t.Fatal(err)
	}

	outcomes := make([]AcceptOutcome, n)
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			out, err := c.AttemptAccept(ctx, job.JobID, id)
			if err != nil {
				t.Errorf("accept %s: %v", id, err)
				return
			}
			outcomes[i] = out
		}(i, id)
	}
	wg.Wait()

	var won, taken int
	var winner string
	for i, out := range outcomes {
		switch out {
		case AcceptOK:
			won++
			winner = ids[i]
		case AcceptTaken:
			taken++
		}
	}
	if won != 1 || taken != n-1 {
		t.Fatalf("expected 1 winner and %d losers, got %d/%d", n-1, won, taken)
	}

	stored, err := c.Store.GetJob(ctx, job.JobID)
	if err != nil || stored.Status != models.JobMatched {
		t.Fatalf("job should be matched: %v %+v", err, stored)
	}

	apps, err := c.Store.ListApplications(ctx, job.JobID)
	if err != nil {
		t.Fatal(err)
	}
	if len(apps) != 1 {
		t.Fatalf("expected exactly one application, got %d", len(apps))
	}
	if apps[0].CandidateID != winner || apps[0].Status != models.ApplicationAccepted {
		t.Fatalf("application does not reference the winner: %+v", apps[0])
	}

	accepted := bus.byName(models.EventAccepted)
	if len(accepted) != 1 || accepted[0].Room != "job:"+job.JobID {
		t.Fatalf("expected one accepted event in the job room, got %+v", accepted)
	}
	takenEvents := bus.byName(models.EventTaken)
	if len(takenEvents) != n-1 {
		t.Fatalf("expected %d taken events, got %d", n-1, len(takenEvents))
	}
	for _, e := range takenEvents {
		if e.Room == "user:"+winner {
			t.Fatal("winner must not receive a taken event")
		}
	}
}

func TestAttemptAcceptNotFound(t *testing.T) {
	ctx := context.Background()
	c, _, _ := testCoordinator(worker("w1", 17.3850, 78.4867, ""))

	out, err := c.AttemptAccept(ctx, "job_missing", "w1")
	if err != nil || out != AcceptNotFound {
		t.Fatalf("missing job: out=%v err=%v", out, err)
	}

	job, _ := c.CreateJobAndOffer(ctx, "farmer1", harvestInput)
	out, err = c.AttemptAccept(ctx, job.JobID, "nobody")
	if err != nil || out != AcceptNotFound {
		t.Fatalf("unknown candidate: out=%v err=%v", out, err)
	}
}

func TestAttemptAcceptFastPathAfterMatch(t *testing.T) {
	ctx := context.Background()
	c, _, _ := testCoordinator(
		worker("w1", 17.3850, 78.4867, ""),
		worker("w2", 17.3850, 78.4867, ""),
	)
	job, _ := c.CreateJobAndOffer(ctx, "farmer1", harvestInput)

	if out, _ := c.AttemptAccept(ctx, job.JobID, "w1"); out != AcceptOK {
		t.Fatalf("first accept should win, got %v", out)
	}
	if out, _ := c.AttemptAccept(ctx, job.JobID, "w2"); out != AcceptTaken {
		t.Fatalf("second accept should lose, got %v", out)
	}
}

func TestCancelJob(t *testing.T) {
	ctx := context.Background()
	c, bus, _ := testCoordinator(worker("w1", 17.3850, 78.4867, ""))
	job, _ := c.CreateJobAndOffer(ctx, "farmer1", harvestInput)

	if err := c.CancelJob(ctx, "job_missing", "farmer1", "Ram"); err != jobstore.ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := c.CancelJob(ctx, job.JobID, "intruder", "Ram"); err != ErrForbidden {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
	if err := c.CancelJob(ctx, job.JobID, "farmer1", "Ram"); err != nil {
		t.Fatal(err)
	}

	stored, _ := c.Store.GetJob(ctx, job.JobID)
	if stored.Status != models.JobCancelled {
		t.Fatalf("expected cancelled, got %s", stored.Status)
	}

	events := bus.byName(models.EventCancelled)
	// one to the job room, one to the offered worker
	if len(events) != 2 {
		t.Fatalf("expected 2 cancelled events, got %+v", events)
	}
	payload, ok := events[0].Data.(models.CancelledPayload)
	if !ok || payload.FarmerName != "Ram" || payload.WorkType != "harvesting" {
		t.Fatalf("cancelled payload lacks context: %+v", events[0].Data)
	}

	// A second cancel is a no-op, not an error.
	if err := c.CancelJob(ctx, job.JobID, "farmer1", "Ram"); err != nil {
		t.Fatalf("cancel must be idempotent: %v", err)
	}
}

func TestReopenFanOut(t *testing.T) {
	ctx := context.Background()
	c, bus, _ := testCoordinator(worker("w1", 17.3850, 78.4867, ""))
	job, _ := c.CreateJobAndOffer(ctx, "farmer1", harvestInput)

	// Reopen of a pending job is a no-op conflict with no fresh offers.
	before := len(bus.byName(models.EventOffer))
	if err := c.Reopen(ctx, job.JobID, "farmer1"); err != ErrConflict {
		t.Fatalf("reopen of pending job: want ErrConflict, got %v", err)
	}
	if got := len(bus.byName(models.EventOffer)); got != before {
		t.Fatalf("no-op reopen must not fan out, offers %d -> %d", before, got)
	}

	if out, _ := c.AttemptAccept(ctx, job.JobID, "w1"); out != AcceptOK {
		t.Fatal("setup accept failed")
	}

	if err := c.Reopen(ctx, job.JobID, "stranger"); err != ErrForbidden {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
	if err := c.Reopen(ctx, job.JobID, "farmer1"); err != nil {
		t.Fatal(err)
	}

	stored, _ := c.Store.GetJob(ctx, job.JobID)
	if stored.Status != models.JobPending {
		t.Fatalf("expected pending after reopen, got %s", stored.Status)
	}

	offers := bus.byName(models.EventOffer)
	last := offers[len(offers)-1]
	payload, ok := last.Data.(models.OfferPayload)
	if !ok || !payload.Reopened {
		t.Fatalf("reopen offers must be tagged: %+v", last.Data)
	}
}

func TestUpdateStatusPlainWrite(t *testing.T) {
	ctx := context.Background()
	c, _, _ := testCoordinator(worker("w1", 17.3850, 78.4867, ""))
	job, _ := c.CreateJobAndOffer(ctx, "farmer1", harvestInput)

	if err := c.UpdateStatus(ctx, job.JobID, "weird"); err != ErrConflict {
		t.Fatalf("unknown status: want ErrConflict, got %v", err)
	}
	if err := c.UpdateStatus(ctx, job.JobID, models.JobCompleted); err != nil {
		t.Fatal(err)
	}
	stored, _ := c.Store.GetJob(ctx, job.JobID)
	if stored.Status != models.JobCompleted {
		t.Fatalf("expected completed, got %s", stored.Status)
	}
}
