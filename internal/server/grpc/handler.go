package grpc

import (
	"context"

	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/models"
	"github.com/dmitrijs2005/socialhub/internal/realtime"
	"github.com/dmitrijs2005/socialhub/internal/remote/wire"
	"github.com/dmitrijs2005/socialhub/internal/server/services"
	"google.golang.org/protobuf/types/known/structpb"
)

// reply encodes resp, or turns err into a status.
func (s *GRPCServer) reply(ctx context.Context, method string, resp any, err error) (*structpb.Struct, error) {
	if err != nil {
		st := wire.ToStatus(err)
		s.logger.Debug(ctx, "request failed", "method", method, "error", err)
		return nil, st
	}
	out, err := wire.Encode(resp)
	if err != nil {
		s.logger.Error(ctx, "encode response", "method", method, "error", err)
		return nil, wire.ToStatus(err)
	}
	return out, nil
}

func decode(in *structpb.Struct, v any) error {
	if err := wire.Decode(in, v); err != nil {
		return wire.ToStatus(common.ErrInvalidQuery)
	}
	return nil
}

func (s *GRPCServer) SignUp(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req wire.AuthRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Registration request")

	res, err := s.users.SignUp(ctx, req.Email, req.Password, req.Data)
	if err != nil {
		return s.reply(ctx, wire.MethodSignUp, nil, err)
	}
	return s.reply(ctx, wire.MethodSignUp, wire.AuthResponse{User: res.User, Session: res.Session}, nil)
}

func (s *GRPCServer) SignIn(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req wire.AuthRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	res, err := s.users.SignInWithPassword(ctx, req.Email, req.Password)
	if err != nil {
		return s.reply(ctx, wire.MethodSignIn, nil, err)
	}
	return s.reply(ctx, wire.MethodSignIn, wire.AuthResponse{User: res.User, Session: res.Session}, nil)
}

func (s *GRPCServer) SignOut(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req wire.AuthRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	return s.reply(ctx, wire.MethodSignOut, wire.Empty{}, s.users.SignOut(ctx, req.RefreshToken))
}

func (s *GRPCServer) RefreshToken(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req wire.AuthRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	session, err := s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return s.reply(ctx, wire.MethodRefreshToken, nil, err)
	}
	return s.reply(ctx, wire.MethodRefreshToken, wire.AuthResponse{User: session.User, Session: session}, nil)
}

func (s *GRPCServer) ResetPassword(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req wire.AuthRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	return s.reply(ctx, wire.MethodResetPassword, wire.Empty{}, s.users.ResetPassword(ctx, req.Email))
}

func (s *GRPCServer) GetUser(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return nil, wire.ToStatus(common.ErrUnauthorized)
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return s.reply(ctx, wire.MethodGetUser, nil, err)
	}
	return s.reply(ctx, wire.MethodGetUser, wire.AuthResponse{User: user}, nil)
}

func (s *GRPCServer) Insert(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req wire.TableRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	rec, err := s.records.Insert(ctx, req.Collection, req.Fields)
	return s.reply(ctx, wire.MethodInsert, wire.TableResponse{Record: rec}, err)
}

func (s *GRPCServer) Select(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req wire.TableRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	var q models.Query
	if req.Query != nil {
		q = *req.Query
	}
	rows, err := s.records.Select(ctx, req.Collection, q)
	return s.reply(ctx, wire.MethodSelect, wire.TableResponse{Records: rows}, err)
}

func (s *GRPCServer) Update(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req wire.TableRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	rec, err := s.records.Update(ctx, req.Collection, req.ID, req.Fields)
	return s.reply(ctx, wire.MethodUpdate, wire.TableResponse{Record: rec}, err)
}

func (s *GRPCServer) Delete(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req wire.TableRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	return s.reply(ctx, wire.MethodDelete, wire.Empty{}, s.records.Delete(ctx, req.Collection, req.ID))
}

func (s *GRPCServer) Single(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req wire.TableRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	rec, err := s.records.Single(ctx, req.Collection, req.ID)
	return s.reply(ctx, wire.MethodSingle, wire.TableResponse{Record: rec}, err)
}

func (s *GRPCServer) Upload(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req wire.StorageRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	opts := models.UploadOptions{Upsert: req.Upsert, ContentType: req.ContentType, CacheControl: req.CacheControl}
	res, err := s.storage.Upload(ctx, req.Bucket, req.Path, req.Data, opts)
	return s.reply(ctx, wire.MethodUpload, wire.StorageResponse{Result: res}, err)
}

func (s *GRPCServer) Remove(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req wire.StorageRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	return s.reply(ctx, wire.MethodRemove, wire.Empty{}, s.storage.Remove(ctx, req.Bucket, req.Paths))
}

func (s *GRPCServer) List(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req wire.StorageRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	files, err := s.storage.List(ctx, req.Bucket, req.Folder)
	return s.reply(ctx, wire.MethodList, wire.StorageResponse{Files: files}, err)
}

func (s *GRPCServer) Ping(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return s.reply(ctx, wire.MethodPing, wire.Empty{}, nil)
}

// Subscribe acknowledges the channel, then forwards matching change events
// until the client goes away or the server stops.
func (s *GRPCServer) Subscribe(in *structpb.Struct, stream wire.SubscribeServer) error {
	ctx := stream.Context()

	var req wire.SubscribeRequest
	if err := decode(in, &req); err != nil {
		return err
	}
	if err := services.ValidateCollection(req.Collection); err != nil {
		return wire.ToStatus(err)
	}
	event, err := models.ParseEventType(string(req.Event))
	if err != nil {
		return wire.ToStatus(err)
	}

	sub := s.hub.Subscribe(req.Collection, event, realtime.DefaultBuffer)
	defer sub.Close()

	ack, err := wire.Encode(wire.SubscribeAck{Status: wire.StatusSubscribed, Channel: req.Channel})
	if err != nil {
		return wire.ToStatus(err)
	}
	if err := stream.Send(ack); err != nil {
		return err
	}
	s.logger.Debug(ctx, "change stream opened", "channel", req.Channel, "collection", req.Collection, "event", event)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stopping:
			return nil
		case ev := <-sub.Events():
			msg, err := wire.Encode(ev)
			if err != nil {
				s.logger.Warn(ctx, "encode change event", "channel", req.Channel, "error", err)
				continue
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}
