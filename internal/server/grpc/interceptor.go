package grpc

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/axiomvault/internal/api"
	"github.com/dmitrijs2005/axiomvault/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// publicMethods need no access token.
var publicMethods = map[string]bool{
	api.MethodPing:             true,
	api.MethodRegister:         true,
	api.MethodGetSalt:          true,
	api.MethodLogin:            true,
	api.MethodRefreshToken:     true,
	api.MethodInitiateRecovery: true,
	api.MethodFinalizeRecovery: true,
	api.MethodResetKey:         true,
}

// ungatedMethods need a valid token but skip the lock and subscription gates,
// so a user can still see why they are blocked.
var ungatedMethods = map[string]bool{
	api.MethodMe: true,
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

	method, ok := strings.CutPrefix(info.FullMethod, "/"+api.ServiceName+"/")
	if !ok || publicMethods[method] {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	userID, err := s.services.Tokens.Validate(accessToken)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	if !ungatedMethods[method] {
		if _, err := s.services.Accounts.Authorize(ctx, userID); err != nil {
			return nil, s.toStatus(ctx, err)
		}
	}

	ctx = context.WithValue(ctx, userIDKey, userID)

	return handler(ctx, req)
}

func userIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", status.Error(codes.Internal, "missing user id")
	}
	return userID, nil
}
