package model

import "time"

// Event is one append-only row in the shared event log. Rows are written by
// the publisher, read by every open stream connection, and never mutated by
// the streaming path. The relay columns are touched only by cmd/relay.
type Event struct {
	ID         uint64                 `gorm:"primaryKey" json:"id"`
	Channel    string                 `gorm:"size:64;not null;index" json:"channel"`
	EventType  string                 `gorm:"size:64;not null" json:"event_type"`
	Payload    map[string]interface{} `gorm:"type:jsonb;serializer:json" json:"payload"`
	ActorID    *uint64                `gorm:"index" json:"actor_id,omitempty"`
	OccurredAt time.Time              `gorm:"not null;index" json:"occurred_at"`
	Relayed    bool                   `gorm:"not null;default:false" json:"-"`
	RelayedAt  *time.Time             `json:"-"`
}

func (Event) TableName() string { return "event_log" }
