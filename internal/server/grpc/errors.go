package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/dirauth/internal/common"
	"github.com/dmitrijs2005/dirauth/internal/rpc/authv1"
	"github.com/dmitrijs2005/dirauth/internal/server/auth"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// toStatus maps service errors to gRPC statuses. Authentication failures
// carry an error_message detail the client can render per login method.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	var (
		merged *auth.MergedAuthError
		dirErr *auth.DirectoryAuthError
		locErr *auth.LocalAuthError
	)

	switch {
	case errors.As(err, &merged):
		return withDetail(codes.Unauthenticated, merged.Error(), authv1.NewErrorDetail(merged.Errors))
	case errors.As(err, &dirErr):
		if dirErr.Err != nil {
			s.logger.Warn(ctx, "directory login failed", "error", dirErr.Err)
		}
		return withDetail(codes.Unauthenticated, dirErr.ErrorMessage, authv1.NewSingleErrorDetail(dirErr.ErrorMessage))
	case errors.As(err, &locErr):
		if locErr.Err != nil {
			s.logger.Warn(ctx, "local login failed", "error", locErr.Err)
		}
		return withDetail(codes.Unauthenticated, locErr.Detail, authv1.NewSingleErrorDetail(locErr.Detail))
	case errors.Is(err, common.ErrRegistrationDisabled):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, common.ErrInvalidUsername), errors.Is(err, common.ErrWeakPassword):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrUniqueViolation):
		return status.Error(codes.Aborted, "account was created concurrently, retry")
	case errors.Is(err, common.ErrAmbiguousIdentity):
		return status.Error(codes.FailedPrecondition, "several accounts match this identity")
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return status.Error(codes.Unauthenticated, "refresh token expired")
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.Unauthenticated, "unknown token or account")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.Error(ctx, "internal error", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}

func withDetail(code codes.Code, msg string, detail *structpb.Struct) error {
	st, err := status.New(code, msg).WithDetails(detail)
	if err != nil {
		return status.Error(code, msg)
	}
	return st.Err()
}
