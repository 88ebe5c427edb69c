package models

import "time"

// User is the identity resolved by the remote store's auth family.
type User struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	Metadata  map[string]any `json:"user_metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Session is an authenticated session: the user plus the tokens that prove it.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user"`
}

// AuthResponse is the result of a sign-up or sign-in. Session is nil when the
// store requires confirmation before the first sign-in.
type AuthResponse struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
}

// SignUpOptions carries user metadata stored alongside the new account.
type SignUpOptions struct {
	Data map[string]any
}

// AuthEvent names a change of the auth state.
type AuthEvent string

const (
	AuthInitialSession   AuthEvent = "INITIAL_SESSION"
	AuthSignedIn         AuthEvent = "SIGNED_IN"
	AuthSignedOut        AuthEvent = "SIGNED_OUT"
	AuthTokenRefreshed   AuthEvent = "TOKEN_REFRESHED"
	AuthUserUpdated      AuthEvent = "USER_UPDATED"
	AuthPasswordRecovery AuthEvent = "PASSWORD_RECOVERY"
)
