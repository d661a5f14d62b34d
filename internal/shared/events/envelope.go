package events

import "time"

// Envelope is the event shape published by every contest context.
// EntityID carries the entry, auction or delegate the event is about.
type Envelope struct {
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	SourceService  string    `json:"source_service"`
	OccurredAtUTC  time.Time `json:"occurred_at_utc"`
	CorrelationID  string    `json:"correlation_id,omitempty"`
	EntityType     string    `json:"entity_type"`
	EntityID       string    `json:"entity_id"`
	PayloadVersion int       `json:"payload_version"`
	Payload        any       `json:"payload"`
}

const (
	TopicContest   = "contest.events"
	TopicAuction   = "auction.events"
	TopicAllowance = "allowance.events"
)
