package api

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "gophauth.v1.AuthService"

// FullMethod returns "/gophauth.v1.AuthService/<method>".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// AuthServiceServer is implemented by the gRPC server.
type AuthServiceServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	VerifyEmail(context.Context, *VerifyEmailRequest) (*MessageResponse, error)
	Login(context.Context, *LoginRequest) (*TokenPairResponse, error)
	Refresh(context.Context, *RefreshRequest) (*TokenPairResponse, error)
	Logout(context.Context, *LogoutRequest) (*MessageResponse, error)
	LogoutAll(context.Context, *LogoutAllRequest) (*MessageResponse, error)
	ForgotPassword(context.Context, *ForgotPasswordRequest) (*MessageResponse, error)
	ResetPassword(context.Context, *ResetPasswordRequest) (*MessageResponse, error)
	GoogleAuthURL(context.Context, *GoogleAuthURLRequest) (*GoogleAuthURLResponse, error)
	GoogleLogin(context.Context, *GoogleLoginRequest) (*TokenPairResponse, error)
	Me(context.Context, *MeRequest) (*UserResponse, error)
	ListAuditLogs(context.Context, *ListAuditLogsRequest) (*ListAuditLogsResponse, error)
}

// AuthService_ServiceDesc describes the service for grpc.Server.RegisterService.
var AuthService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Register", AuthServiceServer.Register),
		unary("VerifyEmail", AuthServiceServer.VerifyEmail),
		unary("Login", AuthServiceServer.Login),
		unary("Refresh", AuthServiceServer.Refresh),
		unary("Logout", AuthServiceServer.Logout),
		unary("LogoutAll", AuthServiceServer.LogoutAll),
		unary("ForgotPassword", AuthServiceServer.ForgotPassword),
		unary("ResetPassword", AuthServiceServer.ResetPassword),
		unary("GoogleAuthURL", AuthServiceServer.GoogleAuthURL),
		unary("GoogleLogin", AuthServiceServer.GoogleLogin),
		unary("Me", AuthServiceServer.Me),
		unary("ListAuditLogs", AuthServiceServer.ListAuditLogs),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gophauth/v1/auth.json",
}

func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&AuthService_ServiceDesc, srv)
}

func unary[Req, Resp any](name string, call func(AuthServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	full := FullMethod(name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AuthServiceServer), ctx, req.(*Req))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			return interceptor(ctx, in, info, handler)
		},
	}
}
