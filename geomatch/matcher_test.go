package geomatch

import (
	"math"
	"testing"

	"fasal/models"
)

func fp(v float64) *float64 { return &v }

func job(lat, lon float64, workType string) *models.Job {
	return &models.Job{
		JobID:    "job_test",
		WorkType: workType,
		HireKind: models.HireIndividual,
		Latitude: fp(lat), Longitude: fp(lon),
		Status: models.JobPending,
	}
}

func candidate(id string, lat, lon float64, skills string, rating float64) models.Candidate {
	return models.Candidate{
		UserID: id,
		Role:   models.RoleWorker,
		Status: models.StatusAvailable,
		Latitude: fp(lat), Longitude: fp(lon),
		Skills: skills,
		Rating: rating,
	}
}

func TestRankScenario(t *testing.T) {
	j := job(17.3850, 78.4867, "harvesting")
	pool := []models.Candidate{
		candidate("A", 17.3860, 78.4876, `["harvesting"]`, 4.0),
		candidate("B", 17.5000, 78.6000, `["harvesting"]`, 5.0),
		candidate("C", 17.3850, 78.4867, `["irrigation"]`, 5.0),
	}

	matches := Rank(j, pool)
	if len(matches) != 1 {
		t.Fatalf("expected only A to match, got %d matches", len(matches))
	}
	if matches[0].Candidate.UserID != "A" {
		t.Fatalf("expected A, got %s", matches[0].Candidate.UserID)
	}
	if matches[0].DistanceKm == nil || *matches[0].DistanceKm != 0.1 {
		t.Fatalf("expected rounded distance 0.1, got %v", matches[0].DistanceKm)
	}
	if got := matches[0].DistanceLabel(); got != "0.1 km away" {
		t.Fatalf("unexpected distance label %q", got)
	}
}

func TestRankDistanceBoundary(t *testing.T) {
	j := job(17.3850, 78.4867, "harvesting")

	// Pure latitude offsets give an exact great-circle distance.
	degPerKm := 180 / (math.Pi * 6371.0)
	at := candidate("at", 17.3850+10.0*degPerKm, 78.4867, "", 0)
	beyond := candidate("beyond", 17.3850+10.1*degPerKm, 78.4867, "", 0)

	matches := Rank(j, []models.Candidate{at, beyond})
	if len(matches) != 1 || matches[0].Candidate.UserID != "at" {
		t.Fatalf("expected only the 10.0 km candidate, got %+v", matches)
	}
	if *matches[0].DistanceKm != 10.0 {
		t.Fatalf("expected 10.0 km boundary distance, got %v", *matches[0].DistanceKm)
	}
}

func TestRankNoJobLocation(t *testing.T) {
	j := &models.Job{JobID: "job_nowhere", WorkType: "harvesting", Status: models.JobPending}

	far := candidate("far", 0, 0, `["harvesting"]`, 1.0)
	unknown := models.Candidate{UserID: "unknown", Role: models.RoleWorker, Status: models.StatusAvailable, Rating: 2.0}

	matches := Rank(j, []models.Candidate{far, unknown})
	if len(matches) != 2 {
		t.Fatalf("jobs without location must not distance-filter, got %d matches", len(matches))
	}
	for _, m := range matches {
		if m.DistanceKm != nil {
			t.Fatalf("expected nil distance for location-less job, got %v", *m.DistanceKm)
		}
	}
	// No distances available: rating decides the order.
	if matches[0].Candidate.UserID != "unknown" {
		t.Fatalf("expected rating order, got %s first", matches[0].Candidate.UserID)
	}
}

func TestSkillMatching(t *testing.T) {
	tests := []struct {
		name     string
		workType string
		skills   string
		want     bool
	}{
		{"exact keyword", "sowing", `["sowing"]`, true},
		{"related keyword", "sowing", `["planting"]`, true},
		{"case folded", "sowing", `["Seeding"]`, true},
		{"mismatch", "sowing", `["irrigation"]`, false},
		{"generalist empty list", "sowing", `[]`, true},
		{"generalist blank field", "sowing", "", true},
		{"fail-open garbage", "sowing", `{not json`, true},
		{"unknown work-type", "basket-weaving", `["irrigation"]`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := job(17.3850, 78.4867, tt.workType)
			pool := []models.Candidate{candidate("X", 17.3850, 78.4867, tt.skills, 0)}
			got := len(Rank(j, pool)) == 1
			if got != tt.want {
				t.Fatalf("workType=%q skills=%q: matched=%v, want %v", tt.workType, tt.skills, got, tt.want)
			}
		})
	}
}

func TestRankTieBreakIsStable(t *testing.T) {
	j := job(17.3850, 78.4867, "harvesting")
	degPerKm := 180 / (math.Pi * 6371.0)

	// Both exactly 5.0 km out, on opposite sides.
	low := candidate("low", 17.3850+5.0*degPerKm, 78.4867, "", 3.2)
	high := candidate("high", 17.3850-5.0*degPerKm, 78.4867, "", 4.8)

	for i := 0; i < 50; i++ {
		matches := Rank(j, []models.Candidate{low, high})
		if len(matches) != 2 {
			t.Fatalf("expected 2 matches, got %d", len(matches))
		}
		if matches[0].Candidate.UserID != "high" || matches[1].Candidate.UserID != "low" {
			t.Fatalf("run %d: tie-break not deterministic: %s before %s",
				i, matches[0].Candidate.UserID, matches[1].Candidate.UserID)
		}
	}
}

func TestRankOrdersByDistance(t *testing.T) {
	j := job(17.3850, 78.4867, "harvesting")
	degPerKm := 180 / (math.Pi * 6371.0)

	near := candidate("near", 17.3850+1.0*degPerKm, 78.4867, "", 0.5)
	mid := candidate("mid", 17.3850+4.0*degPerKm, 78.4867, "", 5.0)
	farther := candidate("farther", 17.3850+8.0*degPerKm, 78.4867, "", 5.0)

	matches := Rank(j, []models.Candidate{farther, near, mid})
	want := []string{"near", "mid", "farther"}
	for i, id := range want {
		if matches[i].Candidate.UserID != id {
			t.Fatalf("position %d: want %s, got %s", i, id, matches[i].Candidate.UserID)
		}
	}
}
