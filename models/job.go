package models

import "time"

// Job statuses. A job moves pending -> matched -> completed, or to
// cancelled from any non-terminal status. completed and cancelled are
// terminal; matched -> pending is the explicit re-open compensation.
const (
	JobPending   = "pending"
	JobMatched   = "matched"
	JobCompleted = "completed"
	JobCancelled = "cancelled"
)

// Hire kinds.
const (
	HireIndividual = "individual"
	HireGroup      = "group"
)

type Job struct {
	JobID         string    `bson:"jobid" json:"jobid"`
	FarmerID      string    `bson:"farmerId" json:"farmerId"`
	WorkType      string    `bson:"workType" json:"workType"`
	HireKind      string    `bson:"hireKind" json:"hireKind"`
	WorkersNeeded int       `bson:"workersNeeded" json:"workersNeeded"`
	PayPerDay     float64   `bson:"payPerDay" json:"payPerDay"`
	Latitude      *float64  `bson:"lat,omitempty" json:"lat,omitempty"`
	Longitude     *float64  `bson:"lon,omitempty" json:"lon,omitempty"`
	Address       string    `bson:"address" json:"address"`
	Status        string    `bson:"status" json:"status"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
}

// HasLocation reports whether both coordinates are present.
func (j *Job) HasLocation() bool {
	return j.Latitude != nil && j.Longitude != nil
}

// Terminal reports whether the status admits no further transition.
func (j *Job) Terminal() bool {
	return j.Status == JobCompleted || j.Status == JobCancelled
}

type Application struct {
	ApplicationID string    `bson:"applicationid" json:"applicationid"`
	JobID         string    `bson:"jobid" json:"jobid"`
	CandidateID   string    `bson:"candidateid" json:"candidateid"`
	Status        string    `bson:"status" json:"status"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
}

// The only application status the system models today.
const ApplicationAccepted = "accepted"
