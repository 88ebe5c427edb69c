package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/models"
	"github.com/dmitrijs2005/socialhub/internal/remote"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength mirrors the backend's sign-up rule.
const MinPasswordLength = 6

const sessionValidity = time.Hour

type account struct {
	user         models.User
	passwordHash []byte
}

// GetSession returns a copy of the current session or nil.
func (s *Store) GetSession(ctx context.Context) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(OpGetSession); err != nil {
		return nil, err
	}
	return copySession(s.session), nil
}

// SignUp creates the account, its user_profiles record and signs it in.
func (s *Store) SignUp(ctx context.Context, email, password string, opts models.SignUpOptions) (*models.AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	if err := s.injected(OpSignUp); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if email == "" || len(password) < MinPasswordLength {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: email required and password of at least %d characters", common.ErrInvalidCredentials, MinPasswordLength)
	}
	if _, taken := s.users[email]; taken {
		s.mu.Unlock()
		return nil, common.ErrEmailTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acc := &account{
		user: models.User{
			ID:        uuid.NewString(),
			Email:     email,
			Metadata:  maps.Clone(opts.Data),
			CreatedAt: s.now().UTC(),
		},
		passwordHash: hash,
	}
	s.users[email] = acc
	s.mu.Unlock()

	profile := models.Record{common.FieldID: acc.user.ID, "email": email}
	for _, k := range []string{"full_name", "company"} {
		if v, ok := opts.Data[k]; ok {
			profile[k] = v
		}
	}
	if _, err := s.Insert(ctx, common.CollectionProfiles, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	return s.startSession(acc.user), nil
}

func (s *Store) SignInWithPassword(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	if err := s.injected(OpSignIn); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	acc, ok := s.users[email]
	s.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)) != nil {
		return nil, common.ErrInvalidCredentials
	}
	return s.startSession(acc.user), nil
}

// SignOut drops the session. Listeners hear SIGNED_OUT even when no session
// was active.
func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	if err := s.injected(OpSignOut); err != nil {
		s.mu.Unlock()
		return err
	}
	s.session = nil
	s.mu.Unlock()

	s.emit(models.AuthSignedOut, nil)
	return nil
}

// ResetPasswordForEmail succeeds for unknown addresses too.
func (s *Store) ResetPasswordForEmail(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(OpReset); err != nil {
		return err
	}
	if _, ok := s.users[strings.ToLower(strings.TrimSpace(email))]; ok {
		s.recoveryCount++
	}
	return nil
}

// RecoveryRequests counts reset requests made for known accounts.
func (s *Store) RecoveryRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recoveryCount
}

func (s *Store) OnAuthStateChange(l remote.AuthListener) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// ListenerCount reports the registered auth listeners.
func (s *Store) ListenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

func (s *Store) startSession(u models.User) *models.AuthResponse {
	access, _ := common.MakeRandHexString(32)
	refresh, _ := common.MakeRandHexString(32)

	s.mu.Lock()
	user := u
	s.session = &models.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    s.now().Add(sessionValidity),
		User:         &user,
	}
	session := copySession(s.session)
	s.mu.Unlock()

	s.emit(models.AuthSignedIn, copySession(session))
	return &models.AuthResponse{User: session.User, Session: session}
}

// emit calls listeners synchronously, outside s.mu, in registration order.
func (s *Store) emit(event models.AuthEvent, session *models.Session) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	listeners := make([]remote.AuthListener, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(event, copySession(session))
	}
}

func copySession(s *models.Session) *models.Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.User != nil {
		u := *s.User
		u.Metadata = maps.Clone(s.User.Metadata)
		c.User = &u
	}
	return &c
}
