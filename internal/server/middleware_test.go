package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"amber/internal/auth"
	"amber/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_AuthRequired(t *testing.T) {
	secret := "test-secret-key-12345678901234567890123456789012"
	tokens := auth.NewTokenService(auth.Options{
		JWTSecret:   secret,
		ResetSecret: "reset-secret-key-1234567890123456789012345678901",
		AccessTTL:   time.Hour,
		RefreshTTL:  24 * time.Hour,
		ResetTTL:    10 * time.Minute,
	})
	s := &Server{
		userService: service.NewUserService(new(MockUserRepository), service.UserServiceOptions{Tokens: tokens}),
	}
	app := fiber.New()

	app.Get("/protected", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"userID": currentUserID(c)})
	})

	generateToken := func(userID uint, typ, issuer, audience string, exp time.Duration) string {
		claims := jwt.MapClaims{
			"sub": strconv.FormatUint(uint64(userID), 10),
			"typ": typ,
			"iss": issuer,
			"aud": audience,
			"exp": time.Now().Add(exp).Unix(),
			"jti": "test-jti-valid-length",
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		str, _ := token.SignedString([]byte(secret))
		return str
	}
	refresh, err := tokens.IssueRefresh(123)
	require.NoError(t, err)
	reset, err := tokens.IssueReset(123)
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		tokenParam     string
		expectedStatus int
	}{
		{
			name:           "Valid Token",
			authHeader:     "Bearer " + generateToken(123, "access", auth.Issuer, auth.Audience, time.Hour),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Query Param Ignored",
			tokenParam:     generateToken(123, "access", auth.Issuer, auth.Audience, time.Hour),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Expired Token",
			authHeader:     "Bearer " + generateToken(123, "access", auth.Issuer, auth.Audience, -time.Hour),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid Issuer",
			authHeader:     "Bearer " + generateToken(123, "access", "wrong-issuer", auth.Audience, time.Hour),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid Audience",
			authHeader:     "Bearer " + generateToken(123, "access", auth.Issuer, "wrong-audience", time.Hour),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Refresh Token",
			authHeader:     "Bearer " + refresh,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Reset Token",
			authHeader:     "Bearer " + reset,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Missing Header",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Malformed Bearer Format",
			authHeader:     "BearerTokenOnly",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "Invalid Subject Type",
			authHeader: "Bearer " + func() string {
				claims := jwt.MapClaims{"sub": 123, "typ": "access", "iss": auth.Issuer, "aud": auth.Audience, "exp": time.Now().Add(time.Hour).Unix()}
				token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
				str, _ := token.SignedString([]byte(secret))
				return str
			}(),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := "/protected"
			if tt.tokenParam != "" {
				path += "?token=" + tt.tokenParam
			}
			req := httptest.NewRequest(http.MethodGet, path, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			var body map[string]interface{}
			_ = json.NewDecoder(resp.Body).Decode(&body)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, float64(123), body["userID"])
			} else {
				assert.Equal(t, "UNAUTHORIZED", body["code"])
			}
			_ = resp.Body.Close()
		})
	}
}

func TestAuthRequired_RevokedAfterLogout(t *testing.T) {
	ts := newTestServer(t)
	access, _ := ts.register("leaver")

	resp, _ := ts.do(http.MethodGet, "/api/users/me", access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := ts.do(http.MethodPost, "/api/users/logout", access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Successfully logged out"}`, string(raw))

	resp, raw = ts.do(http.MethodGet, "/api/users/me", access, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid or expired token", errorBody(t, raw).Message)

	again, _ := ts.login("leaver@example.com", testPassword)
	resp, _ = ts.do(http.MethodGet, "/api/users/me", again, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "a fresh login is not affected")
}

func TestAdminRequired(t *testing.T) {
	ts := newTestServer(t)
	user, _ := ts.register("plain")
	admin := ts.admin("boss")

	resp, _ := ts.do(http.MethodGet, "/api/admin/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, raw := ts.do(http.MethodGet, "/api/admin/users", user, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Admin access required", errorBody(t, raw).Message)

	resp, _ = ts.do(http.MethodGet, "/api/admin/users", admin, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, ts.srv.db.Exec("DELETE FROM users WHERE username = ?", "boss").Error)
	resp, _ = ts.do(http.MethodGet, "/api/admin/users", admin, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "a deleted admin keeps a valid token but loses access")
}
