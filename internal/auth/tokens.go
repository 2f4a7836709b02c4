// Package auth issues and verifies the signed tokens used for sessions and password resets.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"amber/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	Issuer   = "amber-api"
	Audience = "amber-client"

	resetClaim = "reset_password"
)

// TokenKind separates access tokens from refresh tokens.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// ErrInvalidToken covers every verification failure: bad signature, expiry,
// wrong kind, wrong issuer or audience, malformed claims.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the verified content of a token.
type Claims struct {
	UserID    uint
	Kind      TokenKind
	JTI       string
	ExpiresAt time.Time
}

// Options configures a TokenService.
type Options struct {
	JWTSecret   string
	ResetSecret string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	ResetTTL    time.Duration
	Now         func() time.Time
}

// TokenService signs HS256 tokens. Session tokens and reset tokens use different keys.
type TokenService struct {
	jwtSecret   []byte
	resetSecret []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
	resetTTL    time.Duration
	now         func() time.Time
}

// NewTokenService builds a TokenService from explicit options.
func NewTokenService(opts Options) *TokenService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &TokenService{
		jwtSecret:   []byte(opts.JWTSecret),
		resetSecret: []byte(opts.ResetSecret),
		accessTTL:   opts.AccessTTL,
		refreshTTL:  opts.RefreshTTL,
		resetTTL:    opts.ResetTTL,
		now:         now,
	}
}

// NewTokenServiceFromConfig wires secrets and lifetimes from configuration.
func NewTokenServiceFromConfig(cfg *config.Config) *TokenService {
	return NewTokenService(Options{
		JWTSecret:   cfg.JWTSecret,
		ResetSecret: cfg.SecretKey,
		AccessTTL:   cfg.AccessTokenTTL(),
		RefreshTTL:  cfg.RefreshTokenTTL(),
		ResetTTL:    cfg.ResetTokenTTL(),
	})
}

// generateJTI creates a unique token ID used for revocation and single-use checks.
func generateJTI() string {
	return uuid.NewString()
}

// IssueAccess signs a short-lived access token for userID.
func (s *TokenService) IssueAccess(userID uint) (string, error) {
	return s.issueSession(userID, AccessToken, s.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for userID.
func (s *TokenService) IssueRefresh(userID uint) (string, error) {
	return s.issueSession(userID, RefreshToken, s.refreshTTL)
}

func (s *TokenService) issueSession(userID uint, kind TokenKind, ttl time.Duration) (string, error) {
	if len(s.jwtSecret) == 0 {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := s.now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"typ": string(kind),
		"iss": Issuer,
		"aud": Audience,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": generateJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// Parse verifies a session token and requires it to be of kind want.
func (s *TokenService) Parse(tokenString string, want TokenKind) (*Claims, error) {
	claims, err := s.parse(tokenString, s.jwtSecret,
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if kind, _ := claims["typ"].(string); TokenKind(kind) != want {
		return nil, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrInvalidToken
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, ErrInvalidToken
	}

	return buildClaims(claims, uint(userID), want), nil
}

// IssueReset signs a password-reset token carrying the user's ID.
func (s *TokenService) IssueReset(userID uint) (string, error) {
	if len(s.resetSecret) == 0 {
		return "", fmt.Errorf("reset secret not configured")
	}

	now := s.now()
	claims := jwt.MapClaims{
		resetClaim: userID,
		"exp":      now.Add(s.resetTTL).Unix(),
		"iat":      now.Unix(),
		"jti":      generateJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.resetSecret)
}

// VerifyReset decodes a reset token. Every failure, whatever its cause, yields (nil, false).
func (s *TokenService) VerifyReset(tokenString string) (*Claims, bool) {
	claims, err := s.parse(tokenString, s.resetSecret)
	if err != nil {
		return nil, false
	}

	raw, ok := claims[resetClaim].(float64)
	if !ok || raw <= 0 || raw != float64(uint(raw)) {
		return nil, false
	}

	return buildClaims(claims, uint(raw), ""), true
}

func (s *TokenService) parse(tokenString string, secret []byte, opts ...jwt.ParserOption) (jwt.MapClaims, error) {
	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	token, err := jwt.Parse(tokenString, func(_ *jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func buildClaims(claims jwt.MapClaims, userID uint, kind TokenKind) *Claims {
	out := &Claims{UserID: userID, Kind: kind}
	out.JTI, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out
}

// Remaining returns how long the token stays valid, never negative.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if d := c.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
