package grpcclient

import (
	"context"
	"errors"
	"maps"
	"slices"

	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/models"
	"github.com/dmitrijs2005/socialhub/internal/remote"
	"github.com/dmitrijs2005/socialhub/internal/remote/wire"
)

// GetSession returns nil when no tokens are held. Otherwise it asks the
// backend who the tokens belong to; tokens the backend no longer accepts are
// dropped and reported as no session.
func (c *Client) GetSession(ctx context.Context) (*models.Session, error) {
	if access, _ := c.tokens(); access == "" {
		return nil, nil
	}

	var resp wire.AuthResponse
	if err := c.call(ctx, wire.MethodGetUser, wire.Empty{}, &resp); err != nil {
		if isAuthRejection(err) {
			c.expireSession()
			return nil, nil
		}
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, nil
	}
	if resp.User != nil {
		u := *resp.User
		c.session.User = &u
	}
	return copySession(c.session), nil
}

func (c *Client) SignUp(ctx context.Context, email, password string, opts models.SignUpOptions) (*models.AuthResponse, error) {
	var resp wire.AuthResponse
	req := wire.AuthRequest{Email: email, Password: password, Data: opts.Data}
	if err := c.call(ctx, wire.MethodSignUp, req, &resp); err != nil {
		return nil, err
	}
	return c.signedIn(resp), nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	var resp wire.AuthResponse
	if err := c.call(ctx, wire.MethodSignIn, wire.AuthRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return c.signedIn(resp), nil
}

func (c *Client) signedIn(resp wire.AuthResponse) *models.AuthResponse {
	if resp.Session == nil {
		return &models.AuthResponse{User: resp.User}
	}
	c.mu.Lock()
	c.session = copySession(resp.Session)
	c.mu.Unlock()

	c.emit(models.AuthSignedIn, resp.Session)
	return &models.AuthResponse{User: resp.User, Session: copySession(resp.Session)}
}

// SignOut revokes the refresh token. The local session is dropped and
// SIGNED_OUT emitted even if the backend call fails.
func (c *Client) SignOut(ctx context.Context) error {
	_, refresh := c.tokens()
	var err error
	if refresh != "" {
		err = c.call(ctx, wire.MethodSignOut, wire.AuthRequest{RefreshToken: refresh}, nil)
	}
	c.dropSession()
	c.emit(models.AuthSignedOut, nil)
	return err
}

func (c *Client) ResetPasswordForEmail(ctx context.Context, email string) error {
	return c.call(ctx, wire.MethodResetPassword, wire.AuthRequest{Email: email}, nil)
}

func (c *Client) OnAuthStateChange(l remote.AuthListener) func() {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = l
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Client) dropSession() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	held := c.session != nil
	c.session = nil
	return held
}

// expireSession drops tokens the backend no longer accepts. Listeners hear
// SIGNED_OUT once, when a session was actually held.
func (c *Client) expireSession() {
	if c.dropSession() {
		c.emit(models.AuthSignedOut, nil)
	}
}

func (c *Client) emit(event models.AuthEvent, session *models.Session) {
	c.mu.Lock()
	ids := slices.Sorted(maps.Keys(c.listeners))
	listeners := make([]remote.AuthListener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, c.listeners[id])
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(event, copySession(session))
	}
}

func isAuthRejection(err error) bool {
	return errors.Is(err, common.ErrUnauthorized) ||
		errors.Is(err, common.ErrInvalidToken) ||
		errors.Is(err, common.ErrTokenExpired) ||
		errors.Is(err, common.ErrRefreshTokenExpired)
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
