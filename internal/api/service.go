package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "axiomvault.v1.Vault"

// Method names.
const (
	MethodPing             = "Ping"
	MethodRegister         = "Register"
	MethodGetSalt          = "GetSalt"
	MethodLogin            = "Login"
	MethodRefreshToken     = "RefreshToken"
	MethodMe               = "Me"
	MethodChangeKey        = "ChangeKey"
	MethodInitiateRecovery = "InitiateRecovery"
	MethodFinalizeRecovery = "FinalizeRecovery"
	MethodResetKey         = "ResetKey"
	MethodLockAccount      = "LockAccount"
	MethodUnlockAccount    = "UnlockAccount"
	MethodChangePlan       = "ChangePlan"
	MethodCreateFile       = "CreateFile"
	MethodGetFile          = "GetFile"
	MethodListFiles        = "ListFiles"
	MethodMarkUploaded     = "MarkUploaded"
	MethodDeleteFile       = "DeleteFile"
	MethodListCategories   = "ListCategories"
)

// FullMethod returns the "/service/method" path used on the wire and in
// grpc.UnaryServerInfo.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// VaultServer is implemented by the gRPC server.
type VaultServer interface {
	Ping(context.Context, *emptypb.Empty) (*PingResponse, error)

	Register(context.Context, *RegisterRequest) (*Account, error)
	GetSalt(context.Context, *GetSaltRequest) (*GetSaltResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*TokenResponse, error)
	Me(context.Context, *emptypb.Empty) (*Account, error)
	ChangeKey(context.Context, *ChangeKeyRequest) (*emptypb.Empty, error)

	InitiateRecovery(context.Context, *InitiateRecoveryRequest) (*InitiateRecoveryResponse, error)
	FinalizeRecovery(context.Context, *FinalizeRecoveryRequest) (*emptypb.Empty, error)
	ResetKey(context.Context, *ResetKeyRequest) (*emptypb.Empty, error)

	LockAccount(context.Context, *AccountRef) (*emptypb.Empty, error)
	UnlockAccount(context.Context, *AccountRef) (*emptypb.Empty, error)
	ChangePlan(context.Context, *ChangePlanRequest) (*Account, error)

	CreateFile(context.Context, *CreateFileRequest) (*CreateFileResponse, error)
	GetFile(context.Context, *FileRef) (*GetFileResponse, error)
	ListFiles(context.Context, *ListFilesRequest) (*ListFilesResponse, error)
	MarkUploaded(context.Context, *FileRef) (*emptypb.Empty, error)
	DeleteFile(context.Context, *FileRef) (*emptypb.Empty, error)
	ListCategories(context.Context, *emptypb.Empty) (*ListCategoriesResponse, error)
}

// RegisterVaultServer attaches srv to a gRPC server.
func RegisterVaultServer(s grpc.ServiceRegistrar, srv VaultServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes the Vault service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VaultServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodPing, VaultServer.Ping),
		unary(MethodRegister, VaultServer.Register),
		unary(MethodGetSalt, VaultServer.GetSalt),
		unary(MethodLogin, VaultServer.Login),
		unary(MethodRefreshToken, VaultServer.RefreshToken),
		unary(MethodMe, VaultServer.Me),
		unary(MethodChangeKey, VaultServer.ChangeKey),
		unary(MethodInitiateRecovery, VaultServer.InitiateRecovery),
		unary(MethodFinalizeRecovery, VaultServer.FinalizeRecovery),
		unary(MethodResetKey, VaultServer.ResetKey),
		unary(MethodLockAccount, VaultServer.LockAccount),
		unary(MethodUnlockAccount, VaultServer.UnlockAccount),
		unary(MethodChangePlan, VaultServer.ChangePlan),
		unary(MethodCreateFile, VaultServer.CreateFile),
		unary(MethodGetFile, VaultServer.GetFile),
		unary(MethodListFiles, VaultServer.ListFiles),
		unary(MethodMarkUploaded, VaultServer.MarkUploaded),
		unary(MethodDeleteFile, VaultServer.DeleteFile),
		unary(MethodListCategories, VaultServer.ListCategories),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "axiomvault/v1/vault",
}

// unary builds the method descriptor that protoc-gen-go-grpc would emit for
// a single unary RPC.
func unary[Req, Resp any](method string, call func(VaultServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(VaultServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(method),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(VaultServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
