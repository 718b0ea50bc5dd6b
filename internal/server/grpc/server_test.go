package grpc

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/dirauth/internal/common"
	"github.com/dmitrijs2005/dirauth/internal/logging"
	"github.com/dmitrijs2005/dirauth/internal/rpc/authv1"
	"github.com/dmitrijs2005/dirauth/internal/server/auth"
	"github.com/dmitrijs2005/dirauth/internal/server/models"
	"github.com/dmitrijs2005/dirauth/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

const testSecret = "secret"

type fakeAuth struct {
	got     []services.LoginRequest
	session *services.Session
	err     error
}

func (f *fakeAuth) Login(_ context.Context, req services.LoginRequest) (*services.Session, error) {
	f.got = append(f.got, req)
	return f.session, f.err
}

type fakeSessions struct {
	pair    *services.TokenPair
	err     error
	user    *models.User
	userErr error
	gotID   string
}

func (f *fakeSessions) RefreshToken(context.Context, string) (*services.TokenPair, error) {
	return f.pair, f.err
}

func (f *fakeSessions) CurrentUser(_ context.Context, id string) (*models.User, error) {
	f.gotID = id
	return f.user, f.userErr
}

type fakeAccounts struct {
	registered []services.RegisterRequest
	user       *models.User
	err        error
	passwords  map[string]string
}

func (f *fakeAccounts) Register(_ context.Context, req services.RegisterRequest) (*models.User, error) {
	f.registered = append(f.registered, req)
	return f.user, f.err
}

func (f *fakeAccounts) SetPassword(_ context.Context, userID, password string) error {
	if f.err != nil {
		return f.err
	}
	if f.passwords == nil {
		f.passwords = map[string]string{}
	}
	f.passwords[userID] = password
	return nil
}

// startServer serves s over an in-memory listener and returns a client.
func startServer(t *testing.T, s *GRPCServer) authv1.AuthServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return authv1.NewAuthServiceClient(conn)
}

func newTestServer(a Authenticator, sm SessionManager) *GRPCServer {
	return NewGRPCServer("127.0.0.1:0", logging.Nop{}, a, sm, &fakeAccounts{}, testSecret)
}

func TestLogin_Success(t *testing.T) {
	fa := &fakeAuth{session: &services.Session{
		User:      &models.User{ID: "u1", UserName: "alice", Email: "a@x", FullName: "Alice"},
		TokenPair: services.TokenPair{AccessToken: "acc", RefreshToken: "ref"},
	}}
	c := startServer(t, newTestServer(fa, &fakeSessions{}))

	resp, err := c.Login(context.Background(), authv1.NewLoginRequest("alice", "pw"))
	require.NoError(t, err)

	assert.Equal(t, []services.LoginRequest{{Username: "alice", Password: "pw"}}, fa.got)
	assert.Equal(t, authv1.User{ID: "u1", Username: "alice", Email: "a@x", FullName: "Alice"}, authv1.UserFrom(resp))
	assert.Equal(t, "acc", authv1.String(resp, authv1.FieldAccessToken))
	assert.Equal(t, "ref", authv1.String(resp, authv1.FieldRefreshToken))
}

func detailOf(t *testing.T, err error) *structpb.Struct {
	t.Helper()
	st, ok := status.FromError(err)
	require.True(t, ok)
	for _, d := range st.Details() {
		if s, ok := d.(*structpb.Struct); ok {
			return s
		}
	}
	t.Fatalf("no struct detail in %v", err)
	return nil
}

func TestLogin_MergedFailureCarriesBothMessages(t *testing.T) {
	fa := &fakeAuth{err: &auth.MergedAuthError{Errors: map[string]string{
		auth.MethodDirectory: "Username or password incorrect",
		auth.MethodLocal:     "Username or password does not match any user.",
	}}}
	c := startServer(t, newTestServer(fa, &fakeSessions{}))

	_, err := c.Login(context.Background(), authv1.NewLoginRequest("alice", "pw"))
	require.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, map[string]string{
		"directory": "Username or password incorrect",
		"local":     "Username or password does not match any user.",
	}, authv1.ErrorMessages(detailOf(t, err)))
}

func TestLogin_DirectoryErrorIsSingleMessage(t *testing.T) {
	fa := &fakeAuth{err: &auth.DirectoryAuthError{ErrorMessage: "Username or password incorrect"}}
	c := startServer(t, newTestServer(fa, &fakeSessions{}))

	_, err := c.Login(context.Background(), authv1.NewLoginRequest("alice", "pw"))
	require.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "Username or password incorrect", status.Convert(err).Message())
	assert.Equal(t, map[string]string{"": "Username or password incorrect"}, authv1.ErrorMessages(detailOf(t, err)))
}

func TestToStatus(t *testing.T) {
	s := newTestServer(nil, nil)
	tests := []struct {
		err  error
		want codes.Code
	}{
		{&auth.LocalAuthError{Detail: "x"}, codes.Unauthenticated},
		{common.ErrUniqueViolation, codes.Aborted},
		{common.ErrRegistrationDisabled, codes.PermissionDenied},
		{common.ErrInvalidUsername, codes.InvalidArgument},
		{common.ErrWeakPassword, codes.InvalidArgument},
		{common.ErrAmbiguousIdentity, codes.FailedPrecondition},
		{common.ErrRefreshTokenExpired, codes.Unauthenticated},
		{common.ErrorNotFound, codes.Unauthenticated},
		{context.Canceled, codes.Canceled},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{common.ErrorInternal, codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, status.Code(s.toStatus(context.Background(), tt.err)), tt.err.Error())
	}
}

func TestRefreshToken(t *testing.T) {
	fs := &fakeSessions{pair: &services.TokenPair{AccessToken: "a2", RefreshToken: "r2"}}
	c := startServer(t, newTestServer(&fakeAuth{}, fs))

	resp, err := c.RefreshToken(context.Background(), authv1.NewRefreshTokenRequest("r1"))
	require.NoError(t, err)
	assert.Equal(t, "a2", authv1.String(resp, authv1.FieldAccessToken))
	assert.Equal(t, "r2", authv1.String(resp, authv1.FieldRefreshToken))

	_, err = c.RefreshToken(context.Background(), authv1.NewRefreshTokenRequest(""))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	fs.err = common.ErrRefreshTokenExpired
	_, err = c.RefreshToken(context.Background(), authv1.NewRefreshTokenRequest("old"))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestWhoAmI_RequiresValidToken(t *testing.T) {
	fs := &fakeSessions{user: &models.User{ID: "u1", UserName: "alice"}}
	c := startServer(t, newTestServer(&fakeAuth{}, fs))

	_, err := c.WhoAmI(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, "garbage")
	_, err = c.WhoAmI(bad, &structpb.Struct{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	expired, err := auth.GenerateToken("u1", []byte(testSecret), -time.Minute)
	require.NoError(t, err)
	_, err = c.WhoAmI(metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, expired), &structpb.Struct{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "token expired", status.Convert(err).Message())

	tok, err := auth.GenerateToken("u1", []byte(testSecret), time.Minute)
	require.NoError(t, err)
	resp, err := c.WhoAmI(metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, tok), &structpb.Struct{})
	require.NoError(t, err)
	assert.Equal(t, "u1", fs.gotID)
	assert.Equal(t, "alice", authv1.UserFrom(resp).Username)
}

func TestRegister(t *testing.T) {
	fa := &fakeAccounts{user: &models.User{ID: "u9", UserName: "j.doe@corp.example", Email: "j@x"}}
	c := startServer(t, NewGRPCServer("127.0.0.1:0", logging.Nop{}, &fakeAuth{}, &fakeSessions{}, fa, testSecret))
	ctx := context.Background()

	resp, err := c.Register(ctx, authv1.NewRegisterRequest(authv1.User{Username: "j.doe@corp.example", Email: "j@x", FullName: "J"}, "password1"))
	require.NoError(t, err, "no token needed")
	assert.Equal(t, "u9", authv1.UserFrom(resp).ID)
	assert.Equal(t, []services.RegisterRequest{{Username: "j.doe@corp.example", Email: "j@x", FullName: "J", Password: "password1"}}, fa.registered)

	tests := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("username %q: %w", "alice", common.ErrUniqueViolation), codes.AlreadyExists},
		{common.ErrRegistrationDisabled, codes.PermissionDenied},
		{common.ErrWeakPassword, codes.InvalidArgument},
	}
	for _, tt := range tests {
		fa.err = tt.err
		_, err := c.Register(ctx, authv1.NewRegisterRequest(authv1.User{Username: "alice"}, "password1"))
		assert.Equal(t, tt.want, status.Code(err), tt.err.Error())
	}
}

func TestSetPassword_UsesTokenSubject(t *testing.T) {
	fa := &fakeAccounts{}
	c := startServer(t, NewGRPCServer("127.0.0.1:0", logging.Nop{}, &fakeAuth{}, &fakeSessions{}, fa, testSecret))

	_, err := c.SetPassword(context.Background(), authv1.NewSetPasswordRequest("password1"))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Empty(t, fa.passwords)

	tok, err := auth.GenerateToken("u1", []byte(testSecret), time.Minute)
	require.NoError(t, err)
	ctx := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, tok)

	_, err = c.SetPassword(ctx, authv1.NewSetPasswordRequest("password1"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"u1": "password1"}, fa.passwords)

	fa.err = common.ErrWeakPassword
	_, err = c.SetPassword(ctx, authv1.NewSetPasswordRequest("x"))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestPing_NoTokenNeeded(t *testing.T) {
	c := startServer(t, newTestServer(&fakeAuth{}, &fakeSessions{}))

	resp, err := c.Ping(context.Background(), &structpb.Struct{})
	require.NoError(t, err)
	assert.Equal(t, "OK", authv1.String(resp, authv1.FieldStatus))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeAuth{}, &fakeSessions{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", logging.Nop{}, &fakeAuth{}, &fakeSessions{}, &fakeAccounts{}, testSecret)

	if err := srv.Run(context.Background()); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}
