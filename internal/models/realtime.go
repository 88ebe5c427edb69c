package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/socialhub/internal/common"
)

// EventType filters realtime change events.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
	EventAll    EventType = "*"
)

// ParseEventType accepts the upper- or lower-case names and "all".
func ParseEventType(s string) (EventType, error) {
	switch s {
	case "INSERT", "insert":
		return EventInsert, nil
	case "UPDATE", "update":
		return EventUpdate, nil
	case "DELETE", "delete":
		return EventDelete, nil
	case "*", "all", "ALL", "":
		return EventAll, nil
	}
	return "", fmt.Errorf("%w: unknown event type %q", common.ErrInvalidQuery, s)
}

// Matches reports whether an event of type t passes this filter.
func (e EventType) Matches(t EventType) bool {
	return e == EventAll || e == t
}

// ChangeEvent is one committed mutation of a collection. For deletes Old
// only carries the id.
type ChangeEvent struct {
	Collection      string    `json:"table"`
	Type            EventType `json:"eventType"`
	New             Record    `json:"new"`
	Old             Record    `json:"old"`
	CommitTimestamp time.Time `json:"commit_timestamp"`
}
