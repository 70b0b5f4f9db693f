package jobstore

import (
	"context"
	"sync"
	"testing"

	"fasal/models"
)

func TestMemTransitionStatusSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := NewMem()
	if err := store.CreateJob(ctx, &models.Job{JobID: "job_1", Status: models.JobPending}); err != nil {
		t.Fatal(err)
	}

	const attempts = 64
	var wg sync.WaitGroup
	wins := make(chan int, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ok, err := store.TransitionStatus(ctx, "job_1", models.JobPending, models.JobMatched)
			if err != nil {
				t.Error(err)
				return
			}
			if ok {
				wins <- n
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners int
	for range wins {
		winners++
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}

	job, err := store.GetJob(ctx, "job_1")
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != models.JobMatched {
		t.Fatalf("expected matched, got %s", job.Status)
	}
}

func TestMemTransitionStatusWrongExpectation(t *testing.T) {
	ctx := context.Background()
	store := NewMem()
	store.CreateJob(ctx, &models.Job{JobID: "job_2", Status: models.JobMatched})

	ok, err := store.TransitionStatus(ctx, "job_2", models.JobPending, models.JobMatched)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("transition must fail when the stored status differs from the expected one")
	}

	ok, err = store.TransitionStatus(ctx, "missing", models.JobPending, models.JobMatched)
	if err != nil || ok {
		t.Fatalf("missing job must not transition, ok=%v err=%v", ok, err)
	}
}
