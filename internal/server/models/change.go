package models

import "time"

// ChangeNotice is the payload published on the record_changes channel
// after a record mutation commits. It carries identity only; listeners
// read the current row themselves.
type ChangeNotice struct {
	Collection      string    `json:"collection"`
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	CommitTimestamp time.Time `json:"commit_timestamp"`
}
