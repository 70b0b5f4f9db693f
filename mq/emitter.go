package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"fasal/bus"
	"fasal/models"
)

// Channel carrying realtime events between service processes. Every
// process runs a bridge that feeds its local websocket hub, so clients
// see events no matter which process performed the state change.
const eventsChannel = "realtime-events"

const publishRetries = 3

// Emitter publishes realtime events to the Redis backplane. Publishing
// is fire-and-forget with bounded retry: a broker outage must never
// fail the state transition that preceded the event.
type Emitter struct {
	Conn *redis.Client
}

func NewEmitter(conn *redis.Client) *Emitter {
	return &Emitter{Conn: conn}
}

// PublishToJob emits an event to a job's room.
func (e *Emitter) PublishToJob(jobID, name string, data interface{}) error {
	return e.publish(models.Event{Name: name, Room: bus.JobRoom(jobID), Data: data})
}

// PublishToUser emits an event to a user's private room.
func (e *Emitter) PublishToUser(userID, name string, data interface{}) error {
	return e.publish(models.Event{Name: name, Room: bus.UserRoom(userID), Data: data})
}

func (e *Emitter) publish(evt models.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", evt.Name, err)
	}

	var lastErr error
	for attempt := 0; attempt < publishRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
		if lastErr = e.Conn.Publish(context.Background(), eventsChannel, payload).Err(); lastErr == nil {
			return nil
		}
	}
	log.Printf("[mq] dropping event %s for %s after %d attempts: %v", evt.Name, evt.Room, publishRetries, lastErr)
	return lastErr
}

// StartBridge subscribes to the backplane and forwards each event to
// the local hub's room. Runs until the context is cancelled.
func StartBridge(ctx context.Context, conn *redis.Client, hub *bus.Hub) {
	sub := conn.Subscribe(ctx, eventsChannel)
	defer sub.Close()

	log.Println("[mq] bridge listening for realtime events")

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var evt models.Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				log.Printf("[mq] bad event payload: %v", err)
				continue
			}
			hub.Broadcast(evt.Room, []byte(msg.Payload))
		case <-ctx.Done():
			return
		}
	}
}
