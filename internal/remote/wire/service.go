package wire

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "socialhub.store.v1.Store"

// Method names.
const (
	MethodSignUp        = "SignUp"
	MethodSignIn        = "SignIn"
	MethodSignOut       = "SignOut"
	MethodRefreshToken  = "RefreshToken"
	MethodResetPassword = "ResetPassword"
	MethodGetUser       = "GetUser"
	MethodInsert        = "Insert"
	MethodSelect        = "Select"
	MethodUpdate        = "Update"
	MethodDelete        = "Delete"
	MethodSingle        = "Single"
	MethodUpload        = "Upload"
	MethodRemove        = "Remove"
	MethodList          = "List"
	MethodSubscribe     = "Subscribe"
	MethodPing          = "Ping"
)

// FullMethod returns "/socialhub.store.v1.Store/<name>".
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// PublicMethods do not require an access token.
var PublicMethods = map[string]bool{
	FullMethod(MethodSignUp):        true,
	FullMethod(MethodSignIn):        true,
	FullMethod(MethodRefreshToken):  true,
	FullMethod(MethodResetPassword): true,
	FullMethod(MethodSignOut):       true,
	FullMethod(MethodPing):          true,
}

// SubscribeServer is the server side of the change stream.
type SubscribeServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

// StoreServer is implemented by the backend.
type StoreServer interface {
	SignUp(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SignIn(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SignOut(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RefreshToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResetPassword(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Insert(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Select(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Update(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Delete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Single(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Upload(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Remove(context.Context, *structpb.Struct) (*structpb.Struct, error)
	List(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Subscribe(*structpb.Struct, SubscribeServer) error
}

// UnimplementedStoreServer answers every method with codes.Unimplemented.
// Embed it to implement only part of StoreServer.
type UnimplementedStoreServer struct{}

func unimplemented(name string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", name)
}

func (UnimplementedStoreServer) SignUp(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodSignUp)
}
func (UnimplementedStoreServer) SignIn(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodSignIn)
}
func (UnimplementedStoreServer) SignOut(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodSignOut)
}
func (UnimplementedStoreServer) RefreshToken(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodRefreshToken)
}
func (UnimplementedStoreServer) ResetPassword(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodResetPassword)
}
func (UnimplementedStoreServer) GetUser(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodGetUser)
}
func (UnimplementedStoreServer) Insert(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodInsert)
}
func (UnimplementedStoreServer) Select(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodSelect)
}
func (UnimplementedStoreServer) Update(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodUpdate)
}
func (UnimplementedStoreServer) Delete(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodDelete)
}
func (UnimplementedStoreServer) Single(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodSingle)
}
func (UnimplementedStoreServer) Upload(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodUpload)
}
func (UnimplementedStoreServer) Remove(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodRemove)
}
func (UnimplementedStoreServer) List(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodList)
}
func (UnimplementedStoreServer) Ping(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodPing)
}
func (UnimplementedStoreServer) Subscribe(*structpb.Struct, SubscribeServer) error {
	return unimplemented(MethodSubscribe)
}

type unaryMethod func(StoreServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(StoreServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(StoreServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

type subscribeServer struct {
	grpc.ServerStream
}

func (s *subscribeServer) Send(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(StoreServer).Subscribe(in, &subscribeServer{stream})
}

// ServiceDesc describes the store service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StoreServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodSignUp, StoreServer.SignUp),
		unary(MethodSignIn, StoreServer.SignIn),
		unary(MethodSignOut, StoreServer.SignOut),
		unary(MethodRefreshToken, StoreServer.RefreshToken),
		unary(MethodResetPassword, StoreServer.ResetPassword),
		unary(MethodGetUser, StoreServer.GetUser),
		unary(MethodInsert, StoreServer.Insert),
		unary(MethodSelect, StoreServer.Select),
		unary(MethodUpdate, StoreServer.Update),
		unary(MethodDelete, StoreServer.Delete),
		unary(MethodSingle, StoreServer.Single),
		unary(MethodUpload, StoreServer.Upload),
		unary(MethodRemove, StoreServer.Remove),
		unary(MethodList, StoreServer.List),
		unary(MethodPing, StoreServer.Ping),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    MethodSubscribe,
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
}

// RegisterStoreServer registers srv on s.
func RegisterStoreServer(s grpc.ServiceRegistrar, srv StoreServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// StoreClient calls the store service over cc.
type StoreClient struct {
	cc grpc.ClientConnInterface
}

func NewStoreClient(cc grpc.ClientConnInterface) *StoreClient {
	return &StoreClient{cc: cc}
}

// Call invokes the unary method name, encoding req and decoding the answer
// into resp. resp may be nil.
func (c *StoreClient) Call(ctx context.Context, name string, req, resp any, opts ...grpc.CallOption) error {
	in, err := Encode(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(name), in, out, opts...); err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return Decode(out, resp)
}

// ChangeStream receives encoded change events.
type ChangeStream interface {
	Recv() (*structpb.Struct, error)
}

type changeStream struct {
	grpc.ClientStream
}

func (s *changeStream) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := s.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Subscribe opens the change stream for req.
func (c *StoreClient) Subscribe(ctx context.Context, req SubscribeRequest, opts ...grpc.CallOption) (ChangeStream, error) {
	in, err := Encode(req)
	if err != nil {
		return nil, err
	}
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], FullMethod(MethodSubscribe), opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &changeStream{stream}, nil
}
