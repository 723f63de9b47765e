package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/pledgeboard/internal/auth"
	"github.com/mmynk/pledgeboard/internal/middleware"
	"github.com/mmynk/pledgeboard/internal/storage"
	"github.com/mmynk/pledgeboard/pkg/api"
	"github.com/mmynk/pledgeboard/pkg/api/apiconnect"
)

var _ apiconnect.AuthServiceHandler = (*AuthService)(nil)

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	sessions      *auth.SessionIssuer
	users         storage.UserStore
	admins        AdminChecker
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, sessions *auth.SessionIssuer, users storage.UserStore, admins AdminChecker, logger *slog.Logger) *AuthService {
	if admins == nil {
		admins = noAdmins{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		authenticator: authenticator,
		sessions:      sessions,
		users:         users,
		admins:        admins,
		logger:        logger,
	}
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, req *connect.Request[api.RegisterRequest]) (*connect.Response[api.RegisterResponse], error) {
	s.logger.Info("Register request", "username", req.Msg.Username)

	user, err := s.authenticator.Register(ctx, req.Msg.Username, req.Msg.DisplayName, req.Msg.Password)
	if err != nil {
		return nil, fail("Register", err, "username", req.Msg.Username)
	}

	token, err := s.sessions.Issue(user)
	if err != nil {
		return nil, fail("Register", err, "user_id", user.ID)
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "username", user.Username)
	return connect.NewResponse(&api.RegisterResponse{
		User:  toAPIUser(user, s.admins.IsAdmin(user.Username)),
		Token: token,
	}), nil
}

// Login authenticates a user and returns a session token.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	s.logger.Info("Login request", "username", req.Msg.Username)

	if req.Msg.Username == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	user, err := s.authenticator.Authenticate(ctx, req.Msg.Username, req.Msg.Password)
	if err != nil {
		s.logger.Warn("Login failed", "username", req.Msg.Username, "error", err)
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
	}

	token, err := s.sessions.Issue(user)
	if err != nil {
		return nil, fail("Login", err, "user_id", user.ID)
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID, "username", user.Username)
	return connect.NewResponse(&api.LoginResponse{
		User:  toAPIUser(user, s.admins.IsAdmin(user.Username)),
		Token: token,
	}), nil
}

// GetCurrentUser returns the currently authenticated user's information.
func (s *AuthService) GetCurrentUser(ctx context.Context, req *connect.Request[api.GetCurrentUserRequest]) (*connect.Response[api.GetCurrentUserResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fail("GetCurrentUser", err, "user_id", userID)
	}

	return connect.NewResponse(&api.GetCurrentUserResponse{
		User: toAPIUser(user, s.admins.IsAdmin(user.Username)),
	}), nil
}
