package grpc

import (
	"context"
	"errors"
	"strconv"

	"github.com/dmitrijs2005/axiomvault/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// toStatus maps a service error onto a gRPC status. A temporary lock also
// sets the minutes_left trailer so clients need not parse the message.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var locked *common.LockedError
	switch {
	case errors.As(err, &locked):
		trailer := metadata.Pairs(common.MinutesLeftHeaderName, strconv.Itoa(locked.MinutesLeft))
		if terr := grpc.SetTrailer(ctx, trailer); terr != nil {
			s.logger.Debug(ctx, "cannot set trailer", "error", terr)
		}
		return status.Error(codes.PermissionDenied, locked.Error())
	case errors.Is(err, common.ErrAccountLockedPermanent):
		return status.Error(codes.PermissionDenied, common.ErrAccountLockedPermanent.Error())
	case errors.Is(err, common.ErrorForbidden):
		return status.Error(codes.PermissionDenied, "forbidden")
	case errors.Is(err, common.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, common.ErrInvalidCredentials.Error())
	case errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired),
		errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrSubscriptionExpired):
		return status.Error(codes.FailedPrecondition, common.ErrSubscriptionExpired.Error())
	case errors.Is(err, common.ErrUploadMismatch):
		return status.Error(codes.FailedPrecondition, common.ErrUploadMismatch.Error())
	case errors.Is(err, common.ErrRecoveryTicketInvalid):
		return status.Error(codes.FailedPrecondition, common.ErrRecoveryTicketInvalid.Error())
	case errors.Is(err, common.ErrDuplicateUsername), errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrValidationFailed):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrQuotaExceeded):
		return status.Error(codes.ResourceExhausted, common.ErrQuotaExceeded.Error())
	case errors.Is(err, common.ErrTransient):
		s.logger.Warn(ctx, "transient failure", "error", err)
		return status.Error(codes.Unavailable, common.ErrTransient.Error())
	default:
		s.logger.Error(ctx, "unexpected error", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
