package client

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/axiomvault/internal/api"
	"github.com/dmitrijs2005/axiomvault/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const defaultCallTimeout = 12 * time.Second

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      *api.VaultClient

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

var _ Client = (*GRPCClient)(nil)

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

func (s *GRPCClient) tokens() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) setTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = access
	s.refreshToken = refresh
}

// accessTokenInterceptor attaches the access token, retries once after a
// refresh when the server reports an expired token, and maps the final
// status onto the package errors.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	var trailer metadata.MD
	opts = append(opts, grpc.Trailer(&trailer))

	accessToken, refreshToken := s.tokens()
	err := invoker(withAccessToken(ctx, accessToken), method, req, reply, cc, opts...)

	if err != nil && refreshToken != "" && method != api.FullMethod(api.MethodRefreshToken) {
		st, ok := status.FromError(err)
		if ok && st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error() {
			resp, rerr := s.client.RefreshToken(ctx, &api.RefreshTokenRequest{RefreshToken: refreshToken})
			if rerr != nil {
				return rerr
			}
			s.setTokens(resp.AccessToken, resp.RefreshToken)

			// tokens refreshed, retrying with the new access token
			err = invoker(withAccessToken(ctx, resp.AccessToken), method, req, reply, cc, opts...)
		}
	}

	return mapError(err, trailer)
}

// NewGRPCClient connects lazily to endpointURL. Extra dial options are
// appended to the defaults.
func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = api.NewVaultClient(conn)
	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx)
	if err != nil {
		return err
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Register(ctx context.Context, req *api.RegisterRequest) (*api.Account, error) {
	return s.client.Register(ctx, req)
}

func (s *GRPCClient) GetSalt(ctx context.Context, username string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()

	resp, err := s.client.GetSalt(ctx, &api.GetSaltRequest{Username: username})
	if err != nil {
		return nil, err
	}
	return resp.Salt, nil
}

func (s *GRPCClient) Login(ctx context.Context, username string, keyHash []byte) (*api.Account, error) {
	resp, err := s.client.Login(ctx, &api.LoginRequest{Username: username, KeyHash: keyHash})
	if err != nil {
		return nil, err
	}
	s.setTokens(resp.AccessToken, resp.RefreshToken)
	return resp.Account, nil
}

// Logout forgets the session tokens.
func (s *GRPCClient) Logout() {
	s.setTokens("", "")
}

func (s *GRPCClient) Me(ctx context.Context) (*api.Account, error) {
	return s.client.Me(ctx)
}

func (s *GRPCClient) ChangeKey(ctx context.Context, req *api.ChangeKeyRequest) error {
	return s.client.ChangeKey(ctx, req)
}

func (s *GRPCClient) InitiateRecovery(ctx context.Context, username string, recoveryKeyHash []byte) (*api.InitiateRecoveryResponse, error) {
	return s.client.InitiateRecovery(ctx, &api.InitiateRecoveryRequest{Username: username, RecoveryKeyHash: recoveryKeyHash})
}

func (s *GRPCClient) FinalizeRecovery(ctx context.Context, req *api.FinalizeRecoveryRequest) error {
	return s.client.FinalizeRecovery(ctx, req)
}

func (s *GRPCClient) LockAccount(ctx context.Context, username string) error {
	return s.client.LockAccount(ctx, &api.AccountRef{Username: username})
}

func (s *GRPCClient) UnlockAccount(ctx context.Context, username string) error {
	return s.client.UnlockAccount(ctx, &api.AccountRef{Username: username})
}

func (s *GRPCClient) ChangePlan(ctx context.Context, username, plan string) (*api.Account, error) {
	return s.client.ChangePlan(ctx, &api.ChangePlanRequest{Username: username, Plan: plan})
}

func (s *GRPCClient) CreateFile(ctx context.Context, req *api.CreateFileRequest) (*api.CreateFileResponse, error) {
	return s.client.CreateFile(ctx, req)
}

func (s *GRPCClient) GetFile(ctx context.Context, id string) (*api.GetFileResponse, error) {
	return s.client.GetFile(ctx, &api.FileRef{ID: id})
}

func (s *GRPCClient) ListFiles(ctx context.Context, req *api.ListFilesRequest) (*api.ListFilesResponse, error) {
	return s.client.ListFiles(ctx, req)
}

func (s *GRPCClient) ListCategories(ctx context.Context) ([]string, error) {
	resp, err := s.client.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

func (s *GRPCClient) MarkUploaded(ctx context.Context, id string) error {
	return s.client.MarkUploaded(ctx, &api.FileRef{ID: id})
}

func (s *GRPCClient) DeleteFile(ctx context.Context, id string) error {
	return s.client.DeleteFile(ctx, &api.FileRef{ID: id})
}

func mapError(err error, trailer metadata.MD) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	msg := st.Message()
	switch st.Code() {
	case codes.Unauthenticated:
		return &ServerError{Kind: ErrUnauthorized, Message: msg}
	case codes.PermissionDenied:
		if v := trailer.Get(common.MinutesLeftHeaderName); len(v) > 0 {
			if minutes, perr := strconv.Atoi(v[0]); perr == nil {
				return &LockedError{MinutesLeft: minutes, Message: msg}
			}
		}
		if msg == common.ErrAccountLockedPermanent.Error() {
			return &ServerError{Kind: ErrLocked, Message: msg}
		}
		return &ServerError{Kind: ErrForbidden, Message: msg}
	case codes.FailedPrecondition:
		return &ServerError{Kind: ErrRejected, Message: msg}
	case codes.AlreadyExists:
		return &ServerError{Kind: ErrAlreadyExists, Message: msg}
	case codes.InvalidArgument:
		return &ServerError{Kind: ErrInvalidInput, Message: msg}
	case codes.NotFound:
		return &ServerError{Kind: ErrNotFound, Message: msg}
	case codes.ResourceExhausted:
		return &ServerError{Kind: ErrLimitExceeded, Message: msg}
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return &ServerError{Kind: common.ErrorInternal, Message: msg}
	}
}
