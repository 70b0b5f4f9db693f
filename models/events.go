package models

// Realtime event names delivered over the bus.
const (
	EventOffer     = "offer"
	EventAccepted  = "accepted"
	EventTaken     = "taken"
	EventCancelled = "cancelled"
	EventArrival   = "arrival"
	EventLocation  = "location"
)

// Event is the envelope published to job and user rooms. Delivery is
// at-most-once; clients reconcile via a status query when in doubt.
type Event struct {
	Name string      `json:"event"`
	Room string      `json:"room"`
	Data interface{} `json:"data,omitempty"`
}

type OfferPayload struct {
	JobID         string  `json:"jobid"`
	WorkType      string  `json:"workType"`
	PayPerDay     float64 `json:"payPerDay"`
	DistanceLabel string  `json:"distanceLabel,omitempty"`
	FarmAddress   string  `json:"farmAddress,omitempty"`
	Reopened      bool    `json:"reopened,omitempty"`
}

type AcceptedPayload struct {
	JobID       string `json:"jobid"`
	CandidateID string `json:"candidateid"`
}

type TakenPayload struct {
	JobID string `json:"jobid"`
}

type CancelledPayload struct {
	JobID      string `json:"jobid"`
	FarmerName string `json:"farmerName,omitempty"`
	WorkType   string `json:"workType"`
}

type ArrivalPayload struct {
	JobID       string `json:"jobid"`
	CandidateID string `json:"candidateid"`
}

type LocationPayload struct {
	UserID    string  `json:"userid"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}
