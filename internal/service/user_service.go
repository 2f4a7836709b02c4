package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"amber/internal/auth"
	"amber/internal/cache"
	"amber/internal/mailer"
	"amber/internal/middleware"
	"amber/internal/models"
	"amber/internal/observability"
	"amber/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgInvalidToken       = "Invalid or expired token"
	resetPath             = "/api/users/reset_password/"
)

// TokenPair is the login result.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type UserService struct {
	accounts
	tokens       *auth.TokenService
	store        *cache.Store
	mailer       mailer.Mailer
	resetBaseURL string
}

type UserServiceOptions struct {
	Tokens *auth.TokenService
	Store  *cache.Store
	Mailer mailer.Mailer
	// ResetBaseURL prefixes the link mailed for password resets.
	ResetBaseURL string
	// HashCost overrides bcrypt.DefaultCost.
	HashCost int
}

type UpdateProfileInput struct {
	UserID   uint
	Username *string
	Email    *string
	Password *string
}

type ResetPasswordInput struct {
	Token    string
	Password string
}

func NewUserService(userRepo repository.UserRepository, opts UserServiceOptions) *UserService {
	return &UserService{
		accounts:     accounts{users: userRepo, hashCost: opts.HashCost},
		tokens:       opts.Tokens,
		store:        opts.Store,
		mailer:       opts.Mailer,
		resetBaseURL: strings.TrimRight(opts.ResetBaseURL, "/"),
	}
}

// Register creates a regular account.
func (s *UserService) Register(ctx context.Context, in NewAccountInput) (*models.User, error) {
	in.IsAdmin = false
	user, err := s.build(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "user registered", slog.Uint64("user_id", uint64(user.ID)))
	return user, nil
}

// Login checks the credentials and issues an access/refresh token pair. Unknown e-mail and wrong
// password are indistinguishable.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if models.AsAppError(err).Code == models.CodeNotFound {
			observability.LoginAttempts.WithLabelValues("unknown_user").Inc()
			return nil, models.NewUnauthorizedError(msgInvalidCredentials)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		observability.LoginAttempts.WithLabelValues("bad_password").Inc()
		return nil, models.NewUnauthorizedError(msgInvalidCredentials)
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, err
	}
	observability.LoginAttempts.WithLabelValues("success").Inc()
	return pair, nil
}

func (s *UserService) issuePair(userID uint) (*TokenPair, error) {
	access, err := s.tokens.IssueAccess(userID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	refresh, err := s.tokens.IssueRefresh(userID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Authenticate verifies a session token of the given kind and rejects revoked ones.
func (s *UserService) Authenticate(ctx context.Context, token string, kind auth.TokenKind) (*auth.Claims, error) {
	claims, err := s.tokens.Parse(token, kind)
	if err != nil {
		return nil, models.NewUnauthorizedError(msgInvalidToken)
	}
	if claims.JTI != "" {
		revoked, err := s.store.Exists(ctx, cache.BlacklistKey(claims.JTI))
		if err != nil {
			middleware.Logger.WarnContext(ctx, "token blacklist check failed", slog.String("error", err.Error()))
		}
		if revoked {
			return nil, models.NewUnauthorizedError(msgInvalidToken)
		}
	}
	return claims, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.Authenticate(ctx, refreshToken, auth.RefreshToken)
	if err != nil {
		return "", err
	}
	if _, err := s.users.GetByID(ctx, claims.UserID); err != nil {
		if models.AsAppError(err).Code == models.CodeNotFound {
			return "", models.NewUnauthorizedError(msgInvalidToken)
		}
		return "", err
	}
	access, err := s.tokens.IssueAccess(claims.UserID)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return access, nil
}

// Logout revokes the presented token until it would have expired anyway.
func (s *UserService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.JTI == "" {
		return nil
	}
	if err := s.store.Mark(ctx, cache.BlacklistKey(claims.JTI), claims.Remaining(time.Now())); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *UserService) CurrentUser(ctx context.Context, userID uint) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile applies a partial edit of the caller's own account.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.applyChanges(ctx, user, in.Username, in.Email, in.Password); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// RequestPasswordReset mails a reset link when the address belongs to an account. The outcome
// is never revealed to the caller.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return models.NewValidationError("Email is required")
	}
	observability.PasswordResets.WithLabelValues("requested").Inc()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if models.AsAppError(err).Code != models.CodeNotFound {
			middleware.Logger.ErrorContext(ctx, "password reset lookup failed", slog.String("error", err.Error()))
		}
		return nil
	}

	token, err := s.tokens.IssueReset(user.ID)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to issue reset token", slog.String("error", err.Error()))
		return nil
	}
	if s.mailer == nil {
		return nil
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, s.resetBaseURL+resetPath+token); err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to send reset mail",
			slog.Uint64("user_id", uint64(user.ID)),
			slog.String("error", err.Error()),
		)
		return nil
	}
	observability.PasswordResets.WithLabelValues("mailed").Inc()
	return nil
}

// ResetPassword consumes a reset token. Bad signature, expiry, unknown user and replay all
// produce the same error.
func (s *UserService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	claims, ok := s.tokens.VerifyReset(in.Token)
	if !ok {
		return models.NewValidationError(msgInvalidToken)
	}
	if in.Password == "" {
		return models.NewValidationError("Password is required")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if models.AsAppError(err).Code == models.CodeNotFound {
			return models.NewValidationError(msgInvalidToken)
		}
		return err
	}
	if err := s.applyChanges(ctx, user, nil, nil, &in.Password); err != nil {
		return err
	}

	usedKey := cache.ResetUsedKey(claims.JTI)
	fresh, err := s.store.MarkIfAbsent(ctx, usedKey, claims.Remaining(time.Now()))
	if err != nil {
		middleware.Logger.WarnContext(ctx, "reset token replay check failed", slog.String("error", err.Error()))
		fresh = true
	}
	if !fresh {
		return models.NewValidationError(msgInvalidToken)
	}

	if err := s.users.Update(ctx, user); err != nil {
		// The password did not change, so the token stays usable.
		s.store.Invalidate(ctx, usedKey)
		return err
	}
	observability.PasswordResets.WithLabelValues("completed").Inc()
	return nil
}
