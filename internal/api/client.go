package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

// VaultClient is the client side of the Vault service. Every call is sent
// with the JSON content subtype.
type VaultClient struct {
	cc grpc.ClientConnInterface
}

func NewVaultClient(cc grpc.ClientConnInterface) *VaultClient {
	return &VaultClient{cc: cc}
}

func invoke[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *VaultClient) Ping(ctx context.Context, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[emptypb.Empty, PingResponse](ctx, c.cc, MethodPing, &emptypb.Empty{}, opts)
}

func (c *VaultClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*Account, error) {
	return invoke[RegisterRequest, Account](ctx, c.cc, MethodRegister, in, opts)
}

func (c *VaultClient) GetSalt(ctx context.Context, in *GetSaltRequest, opts ...grpc.CallOption) (*GetSaltResponse, error) {
	return invoke[GetSaltRequest, GetSaltResponse](ctx, c.cc, MethodGetSalt, in, opts)
}

func (c *VaultClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginRequest, LoginResponse](ctx, c.cc, MethodLogin, in, opts)
}

func (c *VaultClient) RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*TokenResponse, error) {
	return invoke[RefreshTokenRequest, TokenResponse](ctx, c.cc, MethodRefreshToken, in, opts)
}

func (c *VaultClient) Me(ctx context.Context, opts ...grpc.CallOption) (*Account, error) {
	return invoke[emptypb.Empty, Account](ctx, c.cc, MethodMe, &emptypb.Empty{}, opts)
}

func (c *VaultClient) ChangeKey(ctx context.Context, in *ChangeKeyRequest, opts ...grpc.CallOption) error {
	_, err := invoke[ChangeKeyRequest, emptypb.Empty](ctx, c.cc, MethodChangeKey, in, opts)
	return err
}

func (c *VaultClient) InitiateRecovery(ctx context.Context, in *InitiateRecoveryRequest, opts ...grpc.CallOption) (*InitiateRecoveryResponse, error) {
	return invoke[InitiateRecoveryRequest, InitiateRecoveryResponse](ctx, c.cc, MethodInitiateRecovery, in, opts)
}

func (c *VaultClient) FinalizeRecovery(ctx context.Context, in *FinalizeRecoveryRequest, opts ...grpc.CallOption) error {
	_, err := invoke[FinalizeRecoveryRequest, emptypb.Empty](ctx, c.cc, MethodFinalizeRecovery, in, opts)
	return err
}

func (c *VaultClient) ResetKey(ctx context.Context, in *ResetKeyRequest, opts ...grpc.CallOption) error {
	_, err := invoke[ResetKeyRequest, emptypb.Empty](ctx, c.cc, MethodResetKey, in, opts)
	return err
}

func (c *VaultClient) LockAccount(ctx context.Context, in *AccountRef, opts ...grpc.CallOption) error {
	_, err := invoke[AccountRef, emptypb.Empty](ctx, c.cc, MethodLockAccount, in, opts)
	return err
}

func (c *VaultClient) UnlockAccount(ctx context.Context, in *AccountRef, opts ...grpc.CallOption) error {
	_, err := invoke[AccountRef, emptypb.Empty](ctx, c.cc, MethodUnlockAccount, in, opts)
	return err
}

func (c *VaultClient) ChangePlan(ctx context.Context, in *ChangePlanRequest, opts ...grpc.CallOption) (*Account, error) {
	return invoke[ChangePlanRequest, Account](ctx, c.cc, MethodChangePlan, in, opts)
}

func (c *VaultClient) CreateFile(ctx context.Context, in *CreateFileRequest, opts ...grpc.CallOption) (*CreateFileResponse, error) {
	return invoke[CreateFileRequest, CreateFileResponse](ctx, c.cc, MethodCreateFile, in, opts)
}

func (c *VaultClient) GetFile(ctx context.Context, in *FileRef, opts ...grpc.CallOption) (*GetFileResponse, error) {
	return invoke[FileRef, GetFileResponse](ctx, c.cc, MethodGetFile, in, opts)
}

func (c *VaultClient) ListFiles(ctx context.Context, in *ListFilesRequest, opts ...grpc.CallOption) (*ListFilesResponse, error) {
	return invoke[ListFilesRequest, ListFilesResponse](ctx, c.cc, MethodListFiles, in, opts)
}

func (c *VaultClient) MarkUploaded(ctx context.Context, in *FileRef, opts ...grpc.CallOption) error {
	_, err := invoke[FileRef, emptypb.Empty](ctx, c.cc, MethodMarkUploaded, in, opts)
	return err
}

func (c *VaultClient) ListCategories(ctx context.Context, opts ...grpc.CallOption) (*ListCategoriesResponse, error) {
	return invoke[emptypb.Empty, ListCategoriesResponse](ctx, c.cc, MethodListCategories, &emptypb.Empty{}, opts)
}

func (c *VaultClient) DeleteFile(ctx context.Context, in *FileRef, opts ...grpc.CallOption) error {
	_, err := invoke[FileRef, emptypb.Empty](ctx, c.cc, MethodDeleteFile, in, opts)
	return err
}
