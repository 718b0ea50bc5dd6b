package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/dirauth/internal/common"
	"github.com/dmitrijs2005/dirauth/internal/rpc/authv1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type GRPCClient struct {
	endpointURL string
	dialOpts    []grpc.DialOption
	conn        *grpc.ClientConn
	client      authv1.AuthServiceClient

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

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
	s.accessToken, s.refreshToken = access, refresh
	s.mu.Unlock()
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	access, refresh := s.tokens()

	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil || method == authv1.RefreshTokenFullMethod {
		return err
	}

	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	if st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if refresh == "" {
		return err
	}

	if err := s.refresh(ctx, refresh); err != nil {
		return err
	}

	access, _ = s.tokens()
	return invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
}

// NewGRPCClient connects lazily to endpointURL. Extra dial options are
// appended after the defaults (insecure transport, token interceptor).
func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, dialOpts: opts}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, s.dialOpts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = authv1.NewAuthServiceClient(conn)
	return nil
}

// Login authenticates against the server and keeps the returned tokens for
// later calls.
func (s *GRPCClient) Login(ctx context.Context, userName, password string) (*authv1.User, error) {
	resp, err := s.client.Login(ctx, authv1.NewLoginRequest(userName, password))
	if err != nil {
		return nil, s.mapError(err)
	}

	s.setTokens(authv1.String(resp, authv1.FieldAccessToken), authv1.String(resp, authv1.FieldRefreshToken))

	user := authv1.UserFrom(resp)
	return &user, nil
}

// Refresh rotates the stored token pair.
func (s *GRPCClient) Refresh(ctx context.Context) error {
	_, refresh := s.tokens()
	if refresh == "" {
		return ErrNotLoggedIn
	}
	return s.refresh(ctx, refresh)
}

func (s *GRPCClient) refresh(ctx context.Context, refreshToken string) error {
	resp, err := s.client.RefreshToken(ctx, authv1.NewRefreshTokenRequest(refreshToken))
	if err != nil {
		return s.mapError(err)
	}
	s.setTokens(authv1.String(resp, authv1.FieldAccessToken), authv1.String(resp, authv1.FieldRefreshToken))
	return nil
}

// WhoAmI returns the account bound to the current access token.
func (s *GRPCClient) WhoAmI(ctx context.Context) (*authv1.User, error) {
	if !s.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	resp, err := s.client.WhoAmI(ctx, &structpb.Struct{})
	if err != nil {
		return nil, s.mapError(err)
	}
	user := authv1.UserFrom(resp)
	return &user, nil
}

// Register creates a local account. It does not log in.
func (s *GRPCClient) Register(ctx context.Context, user authv1.User, password string) (*authv1.User, error) {
	resp, err := s.client.Register(ctx, authv1.NewRegisterRequest(user, password))
	if err != nil {
		return nil, s.mapError(err)
	}
	created := authv1.UserFrom(resp)
	return &created, nil
}

// SetPassword changes the local password of the logged-in account.
func (s *GRPCClient) SetPassword(ctx context.Context, password string) error {
	if !s.LoggedIn() {
		return ErrNotLoggedIn
	}
	_, err := s.client.SetPassword(ctx, authv1.NewSetPasswordRequest(password))
	return s.mapError(err)
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &structpb.Struct{})
	if err != nil {
		return s.mapError(err)
	}

	if authv1.String(resp, authv1.FieldStatus) != "OK" {
		return ErrUnavailable
	}

	return nil
}

func (s *GRPCClient) LoggedIn() bool {
	_, refresh := s.tokens()
	return refresh != ""
}

// Logout forgets the session tokens. The server keeps the refresh token
// until it expires.
func (s *GRPCClient) Logout() {
	s.setTokens("", "")
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		if msgs := detailMessages(st); len(msgs) > 0 {
			return &LoginError{Messages: msgs}
		}
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.AlreadyExists:
		return ErrUserExists
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidInput, st.Message())
	case codes.Aborted:
		return ErrConflict
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

func detailMessages(st *status.Status) map[string]string {
	for _, d := range st.Details() {
		if s, ok := d.(*structpb.Struct); ok {
			if msgs := authv1.ErrorMessages(s); len(msgs) > 0 {
				return msgs
			}
		}
	}
	return nil
}
