package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/dmitrijs2005/axiomvault/internal/api"
	"github.com/dmitrijs2005/axiomvault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
)

/*************
 * Fake server
 *************/

type fakeVault struct {
	api.UnimplementedVaultServer

	mu        sync.Mutex
	seen      []string
	access    string
	refreshed int
	loginErr  error
}

func (f *fakeVault) token(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	if v := md.Get(common.AccessTokenHeaderName); len(v) > 0 {
		return v[0]
	}
	return ""
}

func (f *fakeVault) Ping(ctx context.Context, _ *emptypb.Empty) (*api.PingResponse, error) {
	return &api.PingResponse{Status: "OK"}, nil
}

func (f *fakeVault) GetSalt(ctx context.Context, req *api.GetSaltRequest) (*api.GetSaltResponse, error) {
	return &api.GetSaltResponse{Salt: []byte("salt-of-" + req.Username)}, nil
}

func (f *fakeVault) Login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = "A1"
	return &api.LoginResponse{AccessToken: "A1", RefreshToken: "R1", Account: &api.Account{Username: req.Username}}, nil
}

func (f *fakeVault) RefreshToken(ctx context.Context, req *api.RefreshTokenRequest) (*api.TokenResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.RefreshToken != "R1" {
		return nil, status.Error(codes.Unauthenticated, common.ErrRefreshTokenExpired.Error())
	}
	f.refreshed++
	f.access = "A2"
	return &api.TokenResponse{AccessToken: "A2", RefreshToken: "R2"}, nil
}

func (f *fakeVault) Me(ctx context.Context, _ *emptypb.Empty) (*api.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok := f.token(ctx)
	f.seen = append(f.seen, tok)
	switch {
	case tok == "":
		return nil, status.Error(codes.Unauthenticated, "missing token")
	case tok != f.access:
		return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
	}
	return &api.Account{Username: "alice"}, nil
}

/*************
 * helpers
 *************/

func newTestClient(t *testing.T, srv api.VaultServer) *GRPCClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	api.RegisterVaultServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	c, err := NewGRPCClient("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

/*************
 * tests
 *************/

func TestGRPCClient_PingAndSalt(t *testing.T) {
	c := newTestClient(t, &fakeVault{})
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	salt, err := c.GetSalt(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []byte("salt-of-bob"), salt)
}

func TestGRPCClient_LoginStoresTokens(t *testing.T) {
	f := &fakeVault{}
	c := newTestClient(t, f)
	ctx := context.Background()

	acc, err := c.Login(ctx, "alice", []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "alice", acc.Username)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, []string{"A1"}, f.seen)
}

func TestGRPCClient_RefreshesTokenOnExpiredAndRetries(t *testing.T) {
	f := &fakeVault{}
	c := newTestClient(t, f)
	ctx := context.Background()

	_, err := c.Login(ctx, "alice", []byte("k"))
	require.NoError(t, err)

	// server rotates the access token behind the client's back
	f.mu.Lock()
	f.access = "A-rotated"
	f.mu.Unlock()

	// the first Me fails as expired, refresh yields A2 which the server accepts
	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, 1, f.refreshed)
	assert.Equal(t, []string{"A1", "A2"}, f.seen)

	access, refresh := c.tokens()
	assert.Equal(t, "A2", access)
	assert.Equal(t, "R2", refresh)
}

func TestGRPCClient_NoRefreshWithoutSession(t *testing.T) {
	f := &fakeVault{}
	c := newTestClient(t, f)

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 0, f.refreshed)
}

func TestGRPCClient_LogoutForgetsTokens(t *testing.T) {
	c := newTestClient(t, &fakeVault{})
	_, err := c.Login(context.Background(), "alice", []byte("k"))
	require.NoError(t, err)

	c.Logout()
	access, refresh := c.tokens()
	assert.Empty(t, access)
	assert.Empty(t, refresh)
}

func TestGRPCClient_LoginErrorsMapped(t *testing.T) {
	c := newTestClient(t, &fakeVault{loginErr: status.Error(codes.PermissionDenied, common.ErrAccountLockedPermanent.Error())})
	_, err := c.Login(context.Background(), "alice", []byte("k"))
	assert.ErrorIs(t, err, ErrLocked)

	var le *LockedError
	assert.False(t, errors.As(err, &le), "permanent lock carries no countdown")
}

func TestGRPCClient_Unimplemented(t *testing.T) {
	c := newTestClient(t, &fakeVault{})
	err := c.DeleteFile(context.Background(), "x")

	var se *ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, common.ErrorInternal, se.Kind)
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil, nil))

	plain := errors.New("plain")
	assert.Equal(t, plain, mapError(plain, nil))

	cases := []struct {
		code codes.Code
		want error
	}{
		{codes.Unauthenticated, ErrUnauthorized},
		{codes.PermissionDenied, ErrForbidden},
		{codes.FailedPrecondition, ErrRejected},
		{codes.AlreadyExists, ErrAlreadyExists},
		{codes.InvalidArgument, ErrInvalidInput},
		{codes.NotFound, ErrNotFound},
		{codes.ResourceExhausted, ErrLimitExceeded},
		{codes.Unavailable, ErrUnavailable},
		{codes.DeadlineExceeded, ErrUnavailable},
	}
	for _, tc := range cases {
		err := mapError(status.Error(tc.code, "msg"), nil)
		assert.ErrorIs(t, err, tc.want, tc.code.String())
	}

	trailer := metadata.Pairs(common.MinutesLeftHeaderName, "12")
	err := mapError(status.Error(codes.PermissionDenied, "locked, 12 minutes"), trailer)
	var le *LockedError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 12, le.MinutesLeft)
	assert.ErrorIs(t, err, ErrLocked)
	assert.Equal(t, "locked, 12 minutes", err.Error())
}
