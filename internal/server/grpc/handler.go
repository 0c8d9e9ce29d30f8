package grpc

import (
	"context"

	"github.com/dmitrijs2005/axiomvault/internal/api"
	"github.com/dmitrijs2005/axiomvault/internal/server/models"
	"github.com/dmitrijs2005/axiomvault/internal/server/services"
	"google.golang.org/protobuf/types/known/emptypb"
)

func (s *GRPCServer) Ping(ctx context.Context, _ *emptypb.Empty) (*api.PingResponse, error) {
	return &api.PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) Register(ctx context.Context, req *api.RegisterRequest) (*api.Account, error) {

	s.logger.Info(ctx, "Registration request", "username", req.Username)

	acc, err := s.services.Accounts.Register(ctx, services.RegisterInput{
		Username:             req.Username,
		Salt:                 req.Salt,
		KeyHash:              req.KeyHash,
		EncryptedDEK:         req.EncryptedDEK,
		RecoverySalt:         req.RecoverySalt,
		RecoveryKeyHash:      req.RecoveryKeyHash,
		RecoveryEncryptedDEK: req.RecoveryEncryptedDEK,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "username", acc.Username, "id", acc.ID)
	return accountToAPI(acc), nil
}

func (s *GRPCServer) GetSalt(ctx context.Context, req *api.GetSaltRequest) (*api.GetSaltResponse, error) {
	salt, err := s.services.Accounts.GetSalt(ctx, req.Username)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.GetSaltResponse{Salt: salt}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error) {
	res, err := s.services.Auth.Authenticate(ctx, req.Username, req.KeyHash)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.LoginResponse{
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		Account:      accountToAPI(&res.Account),
	}, nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *api.RefreshTokenRequest) (*api.TokenResponse, error) {
	pair, err := s.services.Tokens.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.TokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (s *GRPCServer) Me(ctx context.Context, _ *emptypb.Empty) (*api.Account, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	acc, err := s.services.Accounts.Me(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return accountToAPI(acc), nil
}

func (s *GRPCServer) ChangeKey(ctx context.Context, req *api.ChangeKeyRequest) (*emptypb.Empty, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	err = s.services.Accounts.ChangeKey(ctx, userID, services.ChangeKeyInput{
		CurrentKeyHash:  req.CurrentKeyHash,
		NewSalt:         req.NewSalt,
		NewKeyHash:      req.NewKeyHash,
		NewEncryptedDEK: req.NewEncryptedDEK,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) InitiateRecovery(ctx context.Context, req *api.InitiateRecoveryRequest) (*api.InitiateRecoveryResponse, error) {
	m, err := s.services.Recovery.InitiateRecovery(ctx, req.Username, req.RecoveryKeyHash)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.InitiateRecoveryResponse{
		RecoverySalt:         m.RecoverySalt,
		RecoveryEncryptedDEK: m.RecoveryEncryptedDEK,
		Ticket:               m.Ticket,
		TicketExpires:        m.TicketExpires,
	}, nil
}

func (s *GRPCServer) FinalizeRecovery(ctx context.Context, req *api.FinalizeRecoveryRequest) (*emptypb.Empty, error) {
	err := s.services.Recovery.FinalizeRecovery(ctx, services.FinalizeInput{
		Username:        req.Username,
		Ticket:          req.Ticket,
		NewSalt:         req.NewSalt,
		NewKeyHash:      req.NewKeyHash,
		NewEncryptedDEK: req.NewEncryptedDEK,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) ResetKey(ctx context.Context, req *api.ResetKeyRequest) (*emptypb.Empty, error) {
	err := s.services.Recovery.ResetKey(ctx, services.ResetKeyInput{
		Username:        req.Username,
		RecoveryKeyHash: req.RecoveryKeyHash,
		NewSalt:         req.NewSalt,
		NewKeyHash:      req.NewKeyHash,
		NewEncryptedDEK: req.NewEncryptedDEK,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) LockAccount(ctx context.Context, req *api.AccountRef) (*emptypb.Empty, error) {
	actorID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Admin.LockAccount(ctx, actorID, req.Username); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) UnlockAccount(ctx context.Context, req *api.AccountRef) (*emptypb.Empty, error) {
	actorID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Admin.UnlockAccount(ctx, actorID, req.Username); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) ChangePlan(ctx context.Context, req *api.ChangePlanRequest) (*api.Account, error) {
	actorID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	acc, err := s.services.Admin.ChangePlan(ctx, actorID, req.Username, req.Plan)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return accountToAPI(acc), nil
}

func (s *GRPCServer) CreateFile(ctx context.Context, req *api.CreateFileRequest) (*api.CreateFileResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	f, url, err := s.services.Files.CreateFile(ctx, userID, services.CreateFileInput{
		FileName: req.FileName,
		FileType: req.FileType,
		Category: req.Category,
		FileSize: req.FileSize,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.CreateFileResponse{File: fileToAPI(f), UploadURL: url}, nil
}

func (s *GRPCServer) GetFile(ctx context.Context, req *api.FileRef) (*api.GetFileResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	f, url, err := s.services.Files.GetFile(ctx, userID, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.GetFileResponse{File: fileToAPI(f), DownloadURL: url}, nil
}

func (s *GRPCServer) ListFiles(ctx context.Context, req *api.ListFilesRequest) (*api.ListFilesResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	filter := models.FileFilter{
		Category:  req.Category,
		FileName:  req.FileName,
		FileType:  req.FileType,
		CreatedOn: req.CreatedOn,
	}
	page := services.NormalizePage(models.Page{Number: req.Page, Size: req.PageSize})

	list, err := s.services.Files.ListFiles(ctx, userID, filter, page)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	resp := &api.ListFilesResponse{
		Files:    make([]*api.File, 0, len(list)),
		Page:     page.Number,
		PageSize: page.Size,
	}
	for _, f := range list {
		resp.Files = append(resp.Files, fileToAPI(f))
	}
	return resp, nil
}

func (s *GRPCServer) ListCategories(ctx context.Context, _ *emptypb.Empty) (*api.ListCategoriesResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.services.Files.ListCategories(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.ListCategoriesResponse{Categories: list}, nil
}

func (s *GRPCServer) MarkUploaded(ctx context.Context, req *api.FileRef) (*emptypb.Empty, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Files.MarkUploaded(ctx, userID, req.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) DeleteFile(ctx context.Context, req *api.FileRef) (*emptypb.Empty, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Files.DeleteFile(ctx, userID, req.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &emptypb.Empty{}, nil
}

func accountToAPI(a *services.AccountSnapshot) *api.Account {
	return &api.Account{
		ID:               a.ID,
		Username:         a.Username,
		Salt:             a.Salt,
		EncryptedDEK:     a.EncryptedDEK,
		SubscriptionPlan: string(a.SubscriptionPlan),
		UploadLimitMB:    a.UploadLimitMB,
		IsLocked:         a.IsLocked,
		DaysLeft:         a.DaysLeft,
		CreatedAt:        a.CreatedAt,
	}
}

func fileToAPI(f *models.File) *api.File {
	return &api.File{
		ID:           f.ID,
		Category:     f.Category,
		FileName:     f.FileName,
		FileType:     f.FileType,
		FileSize:     f.FileSize,
		UploadStatus: f.UploadStatus,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}
