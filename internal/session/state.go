package session

import (
	"maps"

	"github.com/dmitrijs2005/socialhub/internal/models"
)

// Status is the authentication state of the controller.
type Status int

const (
	StatusUninitialized Status = iota
	StatusLoading
	StatusAuthenticated
	StatusAnonymous
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	}
	return "uninitialized"
}

// State is a snapshot of the session. Loading is false exactly when Status
// is Authenticated or Anonymous. ProfileLoading is only ever true while
// Authenticated.
type State struct {
	Status         Status
	User           *models.User
	Profile        models.Record
	Loading        bool
	ProfileLoading bool
}

// Authenticated reports whether a user is signed in.
func (s State) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.User != nil
}

// UserID returns the signed-in user's id or "".
func (s State) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}

func (s State) clone() State {
	c := s
	if s.User != nil {
		u := *s.User
		u.Metadata = maps.Clone(s.User.Metadata)
		c.User = &u
	}
	c.Profile = s.Profile.Clone()
	return c
}
