// Package models defines the rows the backend persists.
package models

import "time"

// User is an account row. Metadata holds the free-form data given at
// sign-up.
type User struct {
	ID             string
	Email          string
	PasswordHash   []byte
	Metadata       map[string]any
	RecoveryToken  string
	RecoverySentAt time.Time
	CreatedAt      time.Time
}
