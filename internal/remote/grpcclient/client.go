// Package grpcclient implements remote.Client on top of the self-hosted
// backend's gRPC service.
//
// The client keeps the session tokens in memory only. Every call carries
// the access token as metadata; a call rejected with "token expired" is
// retried once after rotating the tokens with the refresh token.
package grpcclient

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/logging"
	"github.com/dmitrijs2005/socialhub/internal/models"
	"github.com/dmitrijs2005/socialhub/internal/remote"
	"github.com/dmitrijs2005/socialhub/internal/remote/wire"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type Client struct {
	address   string
	publicURL string
	logger    logging.Logger
	dialOpts  []grpc.DialOption

	conn  *grpc.ClientConn
	store *wire.StoreClient

	mu           sync.Mutex
	session      *models.Session
	listeners    map[int]remote.AuthListener
	nextListener int

	// refreshMu serializes token rotation.
	refreshMu sync.Mutex
}

type Option func(*Client)

// WithPublicURL sets the base of URLs returned by PublicURL.
func WithPublicURL(base string) Option {
	return func(c *Client) { c.publicURL = base }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithDialOptions appends options to the connection, e.g. a bufconn dialer
// in tests.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *Client) { c.dialOpts = append(c.dialOpts, opts...) }
}

// New creates the client. The connection is established lazily.
func New(address string, opts ...Option) (*Client, error) {
	c := &Client{
		address:   address,
		logger:    logging.NewNop(),
		listeners: make(map[int]remote.AuthListener),
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With("module", "grpc_client")

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithStreamInterceptor(c.streamAccessTokenInterceptor),
	}, c.dialOpts...)

	conn, err := grpc.NewClient(address, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.store = wire.NewStoreClient(conn)
	return c, nil
}

var _ remote.Client = (*Client)(nil)

func (c *Client) Auth() remote.Auth         { return c }
func (c *Client) Tables() remote.Tables     { return c }
func (c *Client) Realtime() remote.Realtime { return c }
func (c *Client) Storage() remote.Storage   { return c }

func (c *Client) Close() error {
	return c.conn.Close()
}

// Ping checks that the backend answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.call(ctx, wire.MethodPing, wire.Empty{}, nil)
}

func (c *Client) call(ctx context.Context, method string, req, resp any) error {
	return wire.FromStatus(c.store.Call(ctx, method, req, resp))
}

func (c *Client) tokens() (access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return "", ""
	}
	return c.session.AccessToken, c.session.RefreshToken
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *Client) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	access, _ := c.tokens()
	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil || method == wire.FullMethod(wire.MethodRefreshToken) {
		return err
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}

	fresh, rerr := c.refresh(ctx, access)
	if rerr != nil {
		c.logger.Warn(ctx, "token refresh failed", "error", rerr)
		return err
	}
	return invoker(withAccessToken(ctx, fresh), method, req, reply, cc, opts...)
}

func (c *Client) streamAccessTokenInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	access, _ := c.tokens()
	return streamer(withAccessToken(ctx, access), desc, cc, method, opts...)
}

// refresh rotates the tokens unless another call already replaced stale.
// It returns the access token to retry with.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	access, refresh := c.tokens()
	if access != stale && access != "" {
		return access, nil
	}
	if refresh == "" {
		return "", common.ErrUnauthorized
	}

	var resp wire.AuthResponse
	if err := c.call(ctx, wire.MethodRefreshToken, wire.AuthRequest{RefreshToken: refresh}, &resp); err != nil {
		if errors.Is(err, common.ErrRefreshTokenExpired) || errors.Is(err, common.ErrUnauthorized) {
			c.expireSession()
		}
		return "", err
	}
	if resp.Session == nil {
		return "", common.ErrInvalidToken
	}

	c.mu.Lock()
	c.session = resp.Session
	c.mu.Unlock()
	c.emit(models.AuthTokenRefreshed, resp.Session)

	return resp.Session.AccessToken, nil
}
