// Package common defines shared constants and sentinel errors used across
// the client core, the remote store implementations and the backend.
// Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Error kinds surfaced by the record access layer. Every failure of a
	// read-family operation matches ErrRemoteRead, every failure of a
	// write-family operation matches ErrRemoteWrite.
	ErrRemoteRead    = errors.New("remote read error")
	ErrRemoteWrite   = errors.New("remote write error")
	ErrAuthOperation = errors.New("auth operation error")

	// Store-level conditions. They are wrapped inside the kinds above.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrUnavailable   = errors.New("remote store unavailable")
	ErrInternal      = errors.New("internal error")

	// Programming errors: rejected before any remote call is made.
	ErrInvalidCollection = errors.New("invalid collection name")
	ErrInvalidQuery      = errors.New("invalid query")

	// Auth errors.
	ErrInvalidCredentials  = errors.New("invalid login credentials")
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrEmailTaken          = errors.New("user already registered")
)
