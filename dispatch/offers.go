package dispatch

import (
	"time"

	"fasal/rdx"
)

// Offers live as Redis sets keyed by job id. The set is transient
// state, like the offers themselves: losing it only suppresses taken
// and cancelled notices, never correctness.
const offerTTL = 72 * time.Hour

type RedisOfferLog struct{}

func (RedisOfferLog) key(jobID string) string { return "job:offers:" + jobID }

func (l RedisOfferLog) Record(jobID string, userIDs []string) error {
	return rdx.AddToSet(l.key(jobID), offerTTL, userIDs...)
}

func (l RedisOfferLog) Recipients(jobID string) ([]string, error) {
	return rdx.SetMembers(l.key(jobID))
}
