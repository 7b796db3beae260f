package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var unauthenticated = []error{
	common.ErrInvalidCredentials,
	common.ErrInvalidToken,
	common.ErrTokenExpired,
	common.ErrInvalidRefreshToken,
	common.ErrRefreshTokenExpired,
	common.ErrOAuthExchangeFailed,
	common.ErrInvalidAccessToken,
}

// toStatus maps service errors to gRPC statuses. Known kinds keep their
// message; anything else is logged and reported as a bare internal error.
func (s *GRPCServer) toStatus(ctx context.Context, method string, err error) error {
	for _, e := range unauthenticated {
		if errors.Is(err, e) {
			return status.Error(codes.Unauthenticated, e.Error())
		}
	}

	switch {
	case errors.Is(err, common.ErrAlreadyExists):
		if method == "Register" {
			return status.Error(codes.AlreadyExists, "email already registered")
		}
		return status.Error(codes.AlreadyExists, common.ErrAlreadyExists.Error())
	case errors.Is(err, common.ErrEmailNotVerified):
		return status.Error(codes.PermissionDenied, common.ErrEmailNotVerified.Error())
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, common.ErrNotFound.Error())
	case errors.Is(err, common.ErrOAuthNotConfigured):
		return status.Error(codes.FailedPrecondition, common.ErrOAuthNotConfigured.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	s.logger.Error(ctx, "request failed", "method", method, "error", err)
	return status.Error(codes.Internal, common.ErrInternal.Error())
}
