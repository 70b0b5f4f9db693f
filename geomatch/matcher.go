package geomatch

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"fasal/models"
)

// MaxOfferDistanceKm is the cutoff for location-filtered matching.
const MaxOfferDistanceKm = 10.0

const earthRadiusKm = 6371

// workTypeKeywords maps a job's work-type to the skill keywords that
// satisfy it. An unknown work-type has no required keywords and matches
// every candidate.
var workTypeKeywords = map[string][]string{
	"sowing":        {"sowing", "seeding", "planting", "plowing"},
	"harvesting":    {"harvesting", "reaping", "cutting", "threshing"},
	"plowing":       {"plowing", "tilling", "tractor"},
	"irrigation":    {"irrigation", "watering", "pump"},
	"weeding":       {"weeding", "hoeing"},
	"spraying":      {"spraying", "pesticide", "fertilizer"},
	"transplanting": {"transplanting", "planting", "paddy"},
	"livestock":     {"livestock", "cattle", "dairy", "milking"},
}

// Match is one ranked candidate. DistanceKm is rounded to one decimal
// and nil when the job or the candidate has no known location.
type Match struct {
	Candidate  models.Candidate
	DistanceKm *float64
}

// DistanceLabel renders the distance for offer payloads, empty when unknown.
func (m Match) DistanceLabel() string {
	if m.DistanceKm == nil {
		return ""
	}
	return fmt.Sprintf("%.1f km away", *m.DistanceKm)
}

// Rank filters and orders the candidate pool for a job. The pool is
// expected to be pre-filtered by role and availability; Rank applies the
// distance cutoff and skill matching, then sorts nearest-first with
// rating as the tie-break. Pure function, no I/O.
func Rank(job *models.Job, pool []models.Candidate) []Match {
	required := workTypeKeywords[strings.ToLower(strings.TrimSpace(job.WorkType))]

	matches := make([]Match, 0, len(pool))
	for _, c := range pool {
		var distanceKm *float64
		if job.HasLocation() {
			if !c.HasLocation() {
				continue
			}
			d := round1(haversineKm(*job.Latitude, *job.Longitude, *c.Latitude, *c.Longitude))
			if d > MaxOfferDistanceKm {
				continue
			}
			distanceKm = &d
		}

		if !skillsMatch(c.Skills, required) {
			continue
		}

		matches = append(matches, Match{Candidate: c, DistanceKm: distanceKm})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		di, dj := matches[i].DistanceKm, matches[j].DistanceKm
		if di != nil && dj != nil && *di != *dj {
			return *di < *dj
		}
		return matches[i].Candidate.Rating > matches[j].Candidate.Rating
	})

	return matches
}

// skillsMatch reports whether a candidate's skill field satisfies the
// required keywords. Empty skills mean a generalist and always match; a
// skills field that does not parse is treated the same way (fail-open)
// rather than excluding the candidate over a corrupt profile row.
func skillsMatch(rawSkills string, required []string) bool {
	if len(required) == 0 {
		return true
	}

	skills, ok := parseSkills(rawSkills)
	if !ok || len(skills) == 0 {
		return true
	}

	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		for _, k := range required {
			if s == k {
				return true
			}
		}
	}
	return false
}

func parseSkills(raw string) ([]string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	var skills []string
	if err := json.Unmarshal([]byte(raw), &skills); err != nil {
		return nil, false
	}
	return skills, true
}

// haversineKm is the great-circle distance between two points.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
