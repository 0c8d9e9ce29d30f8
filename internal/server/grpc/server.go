// Package grpc exposes the account and file services over gRPC. Requests
// and responses use the JSON codec from internal/api.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/axiomvault/internal/api"
	"github.com/dmitrijs2005/axiomvault/internal/logging"
	"github.com/dmitrijs2005/axiomvault/internal/server/models"
	"github.com/dmitrijs2005/axiomvault/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type TokenService interface {
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Validate(accessToken string) (string, error)
}

type AuthService interface {
	Authenticate(ctx context.Context, username string, keyHash []byte) (*services.AuthResult, error)
}

type AccountService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AccountSnapshot, error)
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Me(ctx context.Context, userID string) (*services.AccountSnapshot, error)
	ChangeKey(ctx context.Context, userID string, in services.ChangeKeyInput) error
	Authorize(ctx context.Context, userID string) (*models.Account, error)
}

type RecoveryService interface {
	InitiateRecovery(ctx context.Context, username string, recoveryKeyHash []byte) (*services.RecoveryMaterial, error)
	FinalizeRecovery(ctx context.Context, in services.FinalizeInput) error
	ResetKey(ctx context.Context, in services.ResetKeyInput) error
}

type AdminService interface {
	LockAccount(ctx context.Context, actorID, username string) error
	UnlockAccount(ctx context.Context, actorID, username string) error
	ChangePlan(ctx context.Context, actorID, username, plan string) (*services.AccountSnapshot, error)
}

type FileService interface {
	CreateFile(ctx context.Context, ownerID string, in services.CreateFileInput) (*models.File, string, error)
	GetFile(ctx context.Context, ownerID, id string) (*models.File, string, error)
	ListFiles(ctx context.Context, ownerID string, filter models.FileFilter, page models.Page) ([]*models.File, error)
	MarkUploaded(ctx context.Context, ownerID, id string) error
	ListCategories(ctx context.Context, ownerID string) ([]string, error)
	DeleteFile(ctx context.Context, ownerID, id string) error
}

// Services groups the business services the server dispatches to.
type Services struct {
	Tokens   TokenService
	Auth     AuthService
	Accounts AccountService
	Recovery RecoveryService
	Admin    AdminService
	Files    FileService
}

// Options tunes the per-peer limit on unauthenticated auth calls. A
// non-positive rate disables limiting.
type Options struct {
	AuthRateLimit float64
	AuthRateBurst int
}

type GRPCServer struct {
	address  string
	services Services
	limiter  *peerLimiter
	health   *health.Server
	logger   logging.Logger
}

var _ api.VaultServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, svc Services, opts Options) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		services: svc,
		limiter:  newPeerLimiter(opts.AuthRateLimit, opts.AuthRateBurst),
		health:   health.NewServer(),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}

// newServer builds the gRPC server with interceptors, the Vault service and
// the health service registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.rateLimitInterceptor, s.accessTokenInterceptor))

	api.RegisterVaultServer(srv, s)
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus(api.ServiceName, healthpb.HealthCheckResponse_SERVING)

	return srv
}
