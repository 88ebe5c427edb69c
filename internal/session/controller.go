// Package session owns the dashboard's authentication state: the current
// user, the profile record derived from it, and the loading flags screens
// gate on.
//
// A Controller is the only writer of that state. It resolves the initial
// session once on Start, follows the remote store's auth events for the rest
// of its life, and loads the user's profile in the background whenever a
// user signs in. Profile loads never delay the authentication state, and a
// load that finishes after its user signed out is discarded.
//
// Auth operations never panic and never leave the controller in an
// undetermined state; their failures are returned as errors matching
// common.ErrAuthOperation for the caller to render.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/logging"
	"github.com/dmitrijs2005/socialhub/internal/models"
	"github.com/dmitrijs2005/socialhub/internal/remote"
)

var (
	ErrAlreadyStarted = errors.New("session controller already started")
	ErrClosed         = errors.New("session controller closed")
)

// ProfileSource fetches one record by id. *records.Service implements it.
type ProfileSource interface {
	GetByID(ctx context.Context, collection, id string) (models.Record, error)
}

// ProfileFields is the metadata stored with a new account.
type ProfileFields struct {
	FullName string
	Company  string
}

type Controller struct {
	auth     remote.Auth
	profiles ProfileSource
	logger   logging.Logger

	// mu guards everything below.
	mu          sync.Mutex
	state       State
	version     uint64
	started     bool
	closed      bool
	eventSeen   bool
	unsubscribe func()

	profileGen    uint64
	cancelProfile context.CancelFunc
	loads         sync.WaitGroup

	observers    map[int]func(State)
	nextObserver int

	// notifyMu serializes deliveries so observers see versions in order.
	notifyMu  sync.Mutex
	delivered uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// New returns a controller that reports Loading until Start has decided
// the user.
func New(auth remote.Auth, profiles ProfileSource, logger logging.Logger) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		auth:      auth,
		profiles:  profiles,
		logger:    logger.With("module", "session"),
		state:     State{Loading: true},
		observers: make(map[int]func(State)),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start registers the auth listener and resolves the current session with
// a single GetSession call. When it returns, Loading is false and User is
// either the resolved user or nil.
//
// A GetSession failure resolves to Anonymous; the error is returned for
// logging only.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.state = State{Status: StatusLoading, Loading: true}
	v, snap := c.commitLocked()
	c.mu.Unlock()
	c.notify(v, snap)

	unsubscribe := c.auth.OnAuthStateChange(c.handleAuthEvent)
	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	sess, err := c.auth.GetSession(ctx)
	if err != nil {
		c.logger.Error(ctx, "get session failed", "error", err)
		err = fmt.Errorf("%w: get session: %w", common.ErrAuthOperation, err)
		sess = nil
	}

	c.mu.Lock()
	if c.eventSeen || c.closed {
		// an auth event already decided the state; this answer is older
		c.mu.Unlock()
		return err
	}
	v, snap = c.setUserLocked(sessionUser(sess))
	c.mu.Unlock()
	c.notify(v, snap)

	return err
}

// handleAuthEvent is the store's listener. It only performs synchronous
// state transitions; profile loads are dispatched, not awaited.
func (c *Controller) handleAuthEvent(event models.AuthEvent, sess *models.Session) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.eventSeen = true
	v, snap := c.setUserLocked(sessionUser(sess))
	c.mu.Unlock()

	c.logger.Debug(c.ctx, "auth state changed", "event", string(event), "user_id", snap.UserID())
	c.notify(v, snap)
}

// setUserLocked applies u, resolving Loading, and starts or drops profile
// loads as the user appears, changes or goes away.
func (c *Controller) setUserLocked(u *models.User) (uint64, State) {
	prevID := c.state.UserID()

	c.state.User = u
	c.state.Loading = false
	if u == nil {
		c.state.Status = StatusAnonymous
		c.clearProfileLocked()
		return c.commitLocked()
	}

	c.state.Status = StatusAuthenticated
	if prevID != u.ID {
		c.state.Profile = nil
		c.dispatchProfileLoadLocked(u.ID)
	}
	return c.commitLocked()
}

func (c *Controller) clearProfileLocked() {
	c.profileGen++
	if c.cancelProfile != nil {
		c.cancelProfile()
		c.cancelProfile = nil
	}
	c.state.Profile = nil
	c.state.ProfileLoading = false
}

// dispatchProfileLoadLocked supersedes any in-flight load and starts a new
// one for userID.
func (c *Controller) dispatchProfileLoadLocked(userID string) {
	if c.closed {
		return
	}
	c.profileGen++
	if c.cancelProfile != nil {
		c.cancelProfile()
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelProfile = cancel
	c.state.ProfileLoading = true

	c.loads.Add(1)
	go c.loadProfile(ctx, cancel, c.profileGen, userID)
}

func (c *Controller) loadProfile(ctx context.Context, cancel context.CancelFunc, gen uint64, userID string) {
	defer c.loads.Done()
	defer cancel()

	var (
		profile models.Record
		err     error
	)
	func() {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("profile load panicked: %v", p)
			}
		}()
		profile, err = c.profiles.GetByID(ctx, common.CollectionProfiles, userID)
	}()

	c.mu.Lock()
	if gen != c.profileGen || c.state.UserID() != userID {
		c.mu.Unlock()
		c.logger.Debug(ctx, "discarding stale profile load", "user_id", userID)
		return
	}
	c.cancelProfile = nil
	c.state.ProfileLoading = false
	if err == nil {
		c.state.Profile = profile.Clone()
	}
	v, snap := c.commitLocked()
	c.mu.Unlock()

	if err != nil {
		// a previously loaded profile is kept
		c.logger.Warn(ctx, "profile load failed", "user_id", userID, "error", err)
	}
	c.notify(v, snap)
}

// SignUp creates an account. The state changes through the store's auth
// event, not through the return value.
func (c *Controller) SignUp(ctx context.Context, email, password string, fields ProfileFields) (*models.AuthResponse, error) {
	resp, err := c.auth.SignUp(ctx, email, password, models.SignUpOptions{Data: map[string]any{
		"full_name": fields.FullName,
		"company":   fields.Company,
	}})
	if err != nil {
		c.logger.Warn(ctx, "sign up failed", "email", email, "error", err)
		return nil, fmt.Errorf("%w: sign up: %w", common.ErrAuthOperation, err)
	}
	return resp, nil
}

// SignIn authenticates with email and password. A failed sign-in leaves
// the controller anonymous.
func (c *Controller) SignIn(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	resp, err := c.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		c.logger.Warn(ctx, "sign in failed", "email", email, "error", err)
		c.resetLocal()
		return nil, fmt.Errorf("%w: sign in: %w", common.ErrAuthOperation, err)
	}
	return resp, nil
}

// SignOut ends the session. Local state is cleared even when the remote
// call fails.
func (c *Controller) SignOut(ctx context.Context) error {
	err := c.auth.SignOut(ctx)
	c.resetLocal()
	if err != nil {
		c.logger.Warn(ctx, "sign out failed", "error", err)
		return fmt.Errorf("%w: sign out: %w", common.ErrAuthOperation, err)
	}
	return nil
}

// ResetPassword asks the store to send a recovery message to email.
func (c *Controller) ResetPassword(ctx context.Context, email string) error {
	if err := c.auth.ResetPasswordForEmail(ctx, email); err != nil {
		c.logger.Warn(ctx, "password reset failed", "email", email, "error", err)
		return fmt.Errorf("%w: reset password: %w", common.ErrAuthOperation, err)
	}
	return nil
}

// RefreshProfile reloads the current user's profile in the background. It
// does nothing while anonymous.
func (c *Controller) RefreshProfile(ctx context.Context) {
	c.mu.Lock()
	if !c.state.Authenticated() || c.closed {
		c.mu.Unlock()
		return
	}
	c.dispatchProfileLoadLocked(c.state.User.ID)
	v, snap := c.commitLocked()
	c.mu.Unlock()
	c.notify(v, snap)
}

func (c *Controller) resetLocal() {
	c.mu.Lock()
	if c.closed || !c.started {
		c.mu.Unlock()
		return
	}
	v, snap := c.setUserLocked(nil)
	c.mu.Unlock()
	c.notify(v, snap)
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe registers fn for state changes and returns the function that
// removes it. fn runs on the goroutine that made the change and must not
// call Subscribe or the returned function itself. A snapshot older than one
// already delivered is never delivered.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextObserver
	c.nextObserver++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Wait blocks until no profile load is in flight.
func (c *Controller) Wait() {
	c.loads.Wait()
}

// Close unregisters the auth listener, cancels an in-flight profile load
// and waits for it to return.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.profileGen++
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	c.cancel()
	c.loads.Wait()
}

// commitLocked bumps the state version and returns it with a snapshot.
func (c *Controller) commitLocked() (uint64, State) {
	c.version++
	return c.version, c.state.clone()
}

func (c *Controller) notify(version uint64, snap State) {
	c.mu.Lock()
	observers := make([]func(State), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.mu.Unlock()

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if version <= c.delivered {
		return
	}
	c.delivered = version
	for _, fn := range observers {
		fn(snap)
	}
}

func sessionUser(s *models.Session) *models.User {
	if s == nil || s.User == nil {
		return nil
	}
	u := *s.User
	return &u
}
