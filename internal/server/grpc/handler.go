package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/dirauth/internal/common"
	"github.com/dmitrijs2005/dirauth/internal/rpc/authv1"
	"github.com/dmitrijs2005/dirauth/internal/server/models"
	"github.com/dmitrijs2005/dirauth/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	username := authv1.String(req, authv1.FieldUsername)
	password := authv1.String(req, authv1.FieldPassword)

	s.logger.Info(ctx, "Login request", "username", username)

	session, err := s.auth.Login(ctx, services.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Logged in", "username", session.User.UserName, "user_id", session.User.ID)
	return authv1.NewSessionResponse(userView(session.User), session.AccessToken, session.RefreshToken), nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	refresh := authv1.String(req, authv1.FieldRefreshToken)
	if refresh == "" {
		return nil, status.Error(codes.InvalidArgument, "refresh token is required")
	}

	pair, err := s.sessions.RefreshToken(ctx, refresh)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return authv1.Fields(map[string]string{
		authv1.FieldAccessToken:  pair.AccessToken,
		authv1.FieldRefreshToken: pair.RefreshToken,
	}), nil
}

func (s *GRPCServer) WhoAmI(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	user, err := s.sessions.CurrentUser(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return authv1.UserStruct(userView(user)), nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return authv1.Fields(map[string]string{authv1.FieldStatus: "OK"}), nil
}

func (s *GRPCServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	u := authv1.UserFrom(req)

	s.logger.Info(ctx, "Registration request", "username", u.Username)

	user, err := s.accounts.Register(ctx, services.RegisterRequest{
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
		Password: authv1.String(req, authv1.FieldPassword),
	})
	if errors.Is(err, common.ErrUniqueViolation) {
		return nil, status.Error(codes.AlreadyExists, "username is taken")
	}
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "username", user.UserName, "user_id", user.ID)
	return authv1.UserStruct(userView(user)), nil
}

func (s *GRPCServer) SetPassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	if err := s.accounts.SetPassword(ctx, userID, authv1.String(req, authv1.FieldPassword)); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Password changed", "user_id", userID)
	return authv1.Fields(map[string]string{authv1.FieldStatus: "OK"}), nil
}

func userView(u *models.User) authv1.User {
	return authv1.User{ID: u.ID, Username: u.UserName, Email: u.Email, FullName: u.FullName}
}
