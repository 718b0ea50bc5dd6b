// Package grpc exposes the login dispatcher and session operations over
// gRPC (dirauth.auth.v1.AuthService).
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/dirauth/internal/logging"
	"github.com/dmitrijs2005/dirauth/internal/rpc/authv1"
	"github.com/dmitrijs2005/dirauth/internal/server/models"
	"github.com/dmitrijs2005/dirauth/internal/server/services"
	"google.golang.org/grpc"
)

// Authenticator runs a login attempt.
type Authenticator interface {
	Login(ctx context.Context, req services.LoginRequest) (*services.Session, error)
}

// SessionManager rotates refresh tokens and resolves access tokens to
// accounts.
type SessionManager interface {
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
}

// AccountManager creates local accounts and changes their passwords.
type AccountManager interface {
	Register(ctx context.Context, req services.RegisterRequest) (*models.User, error)
	SetPassword(ctx context.Context, userID, password string) error
}

type GRPCServer struct {
	authv1.UnimplementedAuthServiceServer
	address   string
	auth      Authenticator
	sessions  SessionManager
	accounts  AccountManager
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, auth Authenticator, sessions SessionManager, accounts AccountManager, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		auth:      auth,
		sessions:  sessions,
		accounts:  accounts,
		jwtSecret: []byte(secretKey),
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	authv1.RegisterAuthServiceServer(srv, s)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	<-stopped
	return nil
}
