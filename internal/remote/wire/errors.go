package wire

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/socialhub/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var statusCodes = []struct {
	err  error
	code codes.Code
}{
	{common.ErrTokenExpired, codes.Unauthenticated},
	{common.ErrRefreshTokenExpired, codes.Unauthenticated},
	{common.ErrInvalidCredentials, codes.Unauthenticated},
	{common.ErrInvalidToken, codes.Unauthenticated},
	{common.ErrUnauthorized, codes.Unauthenticated},
	{common.ErrEmailTaken, codes.AlreadyExists},
	{common.ErrAlreadyExists, codes.AlreadyExists},
	{common.ErrNotFound, codes.NotFound},
	{common.ErrInvalidQuery, codes.InvalidArgument},
	{common.ErrInvalidCollection, codes.InvalidArgument},
	{common.ErrUnavailable, codes.Unavailable},
}

// ToStatus converts err into a gRPC status error. Known sentinels choose the
// code and lead the message so that FromStatus can recover them; anything
// else becomes Internal without leaking its text.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	for _, sc := range statusCodes {
		if errors.Is(err, sc.err) {
			if sc.code == codes.Unauthenticated {
				return status.Error(sc.code, sc.err.Error())
			}
			return status.Error(sc.code, sc.err.Error()+": "+err.Error())
		}
	}
	return status.Error(codes.Internal, common.ErrInternal.Error())
}

// FromStatus maps a gRPC error back to the common sentinels.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	msg := st.Message()
	for _, sc := range statusCodes {
		if sc.code != st.Code() || !strings.HasPrefix(msg, sc.err.Error()) {
			continue
		}
		if msg == sc.err.Error() {
			return sc.err
		}
		return fmt.Errorf("%w: %s", sc.err, strings.TrimPrefix(msg, sc.err.Error()+": "))
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", common.ErrUnauthorized, msg)
	case codes.NotFound:
		return fmt.Errorf("%w: %s", common.ErrNotFound, msg)
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", common.ErrAlreadyExists, msg)
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrInvalidQuery, msg)
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return fmt.Errorf("%w: %s", common.ErrUnavailable, msg)
	}
	return fmt.Errorf("%w: %s", common.ErrInternal, msg)
}
