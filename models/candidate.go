package models

import "time"

// Candidate roles.
const (
	RoleWorker = "worker"
	RoleLeader = "leader"
)

// Candidate availability.
const (
	StatusAvailable = "available"
	StatusOnline    = "online"
	StatusBusy      = "busy"
	StatusOffline   = "offline"
)

// Candidate is a worker or group leader eligible for job offers.
// Location and availability are written only by the candidate's own
// heartbeat; the dispatch engine never mutates these rows.
type Candidate struct {
	UserID    string    `bson:"userid" json:"userid"`
	Name      string    `bson:"name" json:"name"`
	Role      string    `bson:"role" json:"role"`
	Status    string    `bson:"status" json:"status"`
	Latitude  *float64  `bson:"lat,omitempty" json:"lat,omitempty"`
	Longitude *float64  `bson:"lon,omitempty" json:"lon,omitempty"`
	Skills    string    `bson:"skills,omitempty" json:"skills,omitempty"`
	Rating    float64   `bson:"rating" json:"rating"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// HasLocation reports whether the candidate has a known position.
func (c *Candidate) HasLocation() bool {
	return c.Latitude != nil && c.Longitude != nil
}
