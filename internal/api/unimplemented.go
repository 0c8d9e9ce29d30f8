package api

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

// UnimplementedVaultServer answers every RPC with codes.Unimplemented. Embed
// it to implement a subset of the service.
type UnimplementedVaultServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedVaultServer) Ping(context.Context, *emptypb.Empty) (*PingResponse, error) {
	return nil, unimplemented(MethodPing)
}
func (UnimplementedVaultServer) Register(context.Context, *RegisterRequest) (*Account, error) {
	return nil, unimplemented(MethodRegister)
}
func (UnimplementedVaultServer) GetSalt(context.Context, *GetSaltRequest) (*GetSaltResponse, error) {
	return nil, unimplemented(MethodGetSalt)
}
func (UnimplementedVaultServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, unimplemented(MethodLogin)
}
func (UnimplementedVaultServer) RefreshToken(context.Context, *RefreshTokenRequest) (*TokenResponse, error) {
	return nil, unimplemented(MethodRefreshToken)
}
func (UnimplementedVaultServer) Me(context.Context, *emptypb.Empty) (*Account, error) {
	return nil, unimplemented(MethodMe)
}
func (UnimplementedVaultServer) ChangeKey(context.Context, *ChangeKeyRequest) (*emptypb.Empty, error) {
	return nil, unimplemented(MethodChangeKey)
}
func (UnimplementedVaultServer) InitiateRecovery(context.Context, *InitiateRecoveryRequest) (*InitiateRecoveryResponse, error) {
	return nil, unimplemented(MethodInitiateRecovery)
}
func (UnimplementedVaultServer) FinalizeRecovery(context.Context, *FinalizeRecoveryRequest) (*emptypb.Empty, error) {
	return nil, unimplemented(MethodFinalizeRecovery)
}
func (UnimplementedVaultServer) ResetKey(context.Context, *ResetKeyRequest) (*emptypb.Empty, error) {
	return nil, unimplemented(MethodResetKey)
}
func (UnimplementedVaultServer) LockAccount(context.Context, *AccountRef) (*emptypb.Empty, error) {
	return nil, unimplemented(MethodLockAccount)
}
func (UnimplementedVaultServer) UnlockAccount(context.Context, *AccountRef) (*emptypb.Empty, error) {
	return nil, unimplemented(MethodUnlockAccount)
}
func (UnimplementedVaultServer) ChangePlan(context.Context, *ChangePlanRequest) (*Account, error) {
	return nil, unimplemented(MethodChangePlan)
}
func (UnimplementedVaultServer) CreateFile(context.Context, *CreateFileRequest) (*CreateFileResponse, error) {
	return nil, unimplemented(MethodCreateFile)
}
func (UnimplementedVaultServer) GetFile(context.Context, *FileRef) (*GetFileResponse, error) {
	return nil, unimplemented(MethodGetFile)
}
func (UnimplementedVaultServer) ListFiles(context.Context, *ListFilesRequest) (*ListFilesResponse, error) {
	return nil, unimplemented(MethodListFiles)
}
func (UnimplementedVaultServer) MarkUploaded(context.Context, *FileRef) (*emptypb.Empty, error) {
	return nil, unimplemented(MethodMarkUploaded)
}
func (UnimplementedVaultServer) DeleteFile(context.Context, *FileRef) (*emptypb.Empty, error) {
	return nil, unimplemented(MethodDeleteFile)
}
func (UnimplementedVaultServer) ListCategories(context.Context, *emptypb.Empty) (*ListCategoriesResponse, error) {
	return nil, unimplemented(MethodListCategories)
}

var _ VaultServer = UnimplementedVaultServer{}
