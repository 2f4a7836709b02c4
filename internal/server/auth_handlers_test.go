package server

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	ts := newTestServer(t)

	resp, raw := ts.do(http.MethodPost, "/api/users/register", "", map[string]string{
		"username": "finder",
		"email":    "Finder@Example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"message":"User registered successfully"}`, string(raw))

	tests := []struct {
		name    string
		body    map[string]string
		message string
	}{
		{"duplicate email", map[string]string{"username": "other", "email": "finder@example.com", "password": testPassword}, "Email already registered"},
		{"duplicate username", map[string]string{"username": "finder", "email": "x@example.com", "password": testPassword}, "Username already taken"},
		{"missing password", map[string]string{"email": "y@example.com"}, "Email and password are required"},
		{"weak password", map[string]string{"email": "y@example.com", "password": "short"}, "Password must be at least 8 characters long"},
		{"bad email", map[string]string{"email": "not-an-email", "password": testPassword}, "Invalid email format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := ts.do(http.MethodPost, "/api/users/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.message, errorBody(t, raw).Message)
		})
	}

	t.Run("username derived from email", func(t *testing.T) {
		resp, _ := ts.do(http.MethodPost, "/api/users/register", "", map[string]string{
			"email":    "jane.doe@example.com",
			"password": testPassword,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.NotZero(t, ts.userID("jane_doe"))
	})
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.register("walker")

	resp, raw := ts.do(http.MethodPost, "/api/users/login", "", map[string]string{
		"email":    "WALKER@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	decode(t, raw, &body)
	assert.Equal(t, "Login successful", body["message"])
	assert.NotEmpty(t, body["access_token"])
	assert.NotEmpty(t, body["refresh_token"])

	for name, creds := range map[string]map[string]string{
		"wrong password": {"email": "walker@example.com", "password": "wrong-password-1"},
		"unknown email":  {"email": "ghost@example.com", "password": testPassword},
	} {
		t.Run(name, func(t *testing.T) {
			resp, raw := ts.do(http.MethodPost, "/api/users/login", "", creds)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "Invalid credentials", errorBody(t, raw).Message)
		})
	}

	t.Run("missing fields", func(t *testing.T) {
		resp, _ := ts.do(http.MethodPost, "/api/users/login", "", map[string]string{"email": "walker@example.com"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRefresh(t *testing.T) {
	ts := newTestServer(t)
	access, refresh := ts.register("keeper")

	resp, raw := ts.do(http.MethodPost, "/api/users/refresh", refresh, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	decode(t, raw, &body)
	require.NotEmpty(t, body["access_token"])

	resp, _ = ts.do(http.MethodGet, "/api/users/me", body["access_token"], nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ts.do(http.MethodPost, "/api/users/refresh", access, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "access tokens cannot refresh")

	resp, _ = ts.do(http.MethodPost, "/api/users/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.do(http.MethodGet, "/api/users/me", refresh, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "refresh tokens cannot access resources")
}

func TestPasswordResetFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.register("forgetful")

	resp, raw := ts.do(http.MethodPost, "/api/users/reset_password", "", map[string]string{"email": "nobody@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), resetRequestedMessage)
	assert.Empty(t, ts.mail.Sent, "unknown addresses get no mail")

	resp, raw = ts.do(http.MethodPost, "/api/users/reset_password", "", map[string]string{"email": "forgetful@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), resetRequestedMessage)

	last, ok := ts.mail.Last()
	require.True(t, ok)
	assert.Equal(t, "forgetful@example.com", last.To)
	assert.True(t, strings.HasPrefix(last.URL, "http://amber.test/api/users/reset_password/"), last.URL)
	token := ts.resetToken()

	resp, _ = ts.do(http.MethodPost, "/api/users/reset_password/"+token, "", map[string]string{"password": "short"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw = ts.do(http.MethodPost, "/api/users/reset_password/"+token, "", map[string]string{"password": "brand-new-pass-2"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.JSONEq(t, `{"message":"Password has been updated"}`, string(raw))

	ts.login("forgetful@example.com", "brand-new-pass-2")
	resp, _ = ts.do(http.MethodPost, "/api/users/login", "", map[string]string{
		"email": "forgetful@example.com", "password": testPassword,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	t.Run("replay", func(t *testing.T) {
		resp, raw := ts.do(http.MethodPost, "/api/users/reset_password/"+token, "", map[string]string{"password": "another-pass-3"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Invalid or expired token", errorBody(t, raw).Message)
	})

	t.Run("garbage token", func(t *testing.T) {
		resp, raw := ts.do(http.MethodPost, "/api/users/reset_password/not-a-token", "", map[string]string{"password": "another-pass-3"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Invalid or expired token", errorBody(t, raw).Message)
	})

	t.Run("missing email", func(t *testing.T) {
		resp, raw := ts.do(http.MethodPost, "/api/users/reset_password", "", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Email is required", errorBody(t, raw).Message)
	})
}

func TestUpdateMyProfileEndToEnd(t *testing.T) {
	ts := newTestServer(t)
	access, _ := ts.register("mover")
	ts.register("taken")

	resp, raw := ts.do(http.MethodPut, "/api/users/me", access, map[string]string{"email": "Moved@Example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `"email":"moved@example.com"`)
	assert.NotContains(t, string(raw), "password")

	resp, raw = ts.do(http.MethodPut, "/api/users/me", access, map[string]string{"username": "taken"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := errorBody(t, raw)
	assert.Equal(t, "Username already taken", body.Message)
	assert.Equal(t, "CONFLICT", body.Code)

	resp, _ = ts.do(http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
