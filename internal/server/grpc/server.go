// Package grpc exposes the backend services over the hand-declared
// socialhub Store gRPC service.
package grpc

import (
	"context"
	"net"
	"sync"

	"github.com/dmitrijs2005/socialhub/internal/logging"
	"github.com/dmitrijs2005/socialhub/internal/models"
	"github.com/dmitrijs2005/socialhub/internal/realtime"
	"github.com/dmitrijs2005/socialhub/internal/remote/wire"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
)

type UserService interface {
	SignUp(ctx context.Context, email, password string, data map[string]any) (*models.AuthResponse, error)
	SignInWithPassword(ctx context.Context, email, password string) (*models.AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*models.Session, error)
	SignOut(ctx context.Context, refreshToken string) error
	ResetPassword(ctx context.Context, email string) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	Authenticate(accessToken string) (string, error)
}

type RecordService interface {
	Insert(ctx context.Context, collection string, fields models.Record) (models.Record, error)
	Select(ctx context.Context, collection string, q models.Query) ([]models.Record, error)
	Single(ctx context.Context, collection, id string) (models.Record, error)
	Update(ctx context.Context, collection, id string, fields models.Record) (models.Record, error)
	Delete(ctx context.Context, collection, id string) error
}

type StorageService interface {
	Upload(ctx context.Context, bucket, path string, data []byte, opts models.UploadOptions) (*models.UploadResult, error)
	Remove(ctx context.Context, bucket string, paths []string) error
	List(ctx context.Context, bucket, folder string) ([]models.FileObject, error)
}

// Subscriptions hands out change streams.
type Subscriptions interface {
	Subscribe(collection string, event models.EventType, buffer int) *realtime.Subscriber
}

type GRPCServer struct {
	address string
	users   UserService
	records RecordService
	storage StorageService
	hub     Subscriptions
	logger  logging.Logger

	// stopping ends open change streams so GracefulStop can finish.
	stopping chan struct{}
	stopOnce sync.Once
}

func NewGRPCServer(address string, l logging.Logger, us UserService, rs RecordService, ss StorageService, hub Subscriptions) *GRPCServer {
	return &GRPCServer{
		address: address,
		logger:  l.With("module", "grpc_server"),
		users:   us,
		records: rs,
		storage: ss,
		hub:     hub,

		stopping: make(chan struct{}),
	}
}

var _ wire.StoreServer = (*GRPCServer)(nil)

// NewServer builds the grpc.Server with the service and its interceptors
// registered.
func (s *GRPCServer) NewServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.streamAccessTokenInterceptor),
	)
	wire.RegisterStoreServer(srv, s)
	return srv
}

// Run serves until ctx is done, then stops gracefully.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := s.NewServer()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.stopOnce.Do(func() { close(s.stopping) })
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}
	<-stopped
	return nil
}
