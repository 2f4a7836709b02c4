package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"amber/internal/config"
	"amber/internal/database"
	"amber/internal/models"
	"amber/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "correct-horse-1"

type testServer struct {
	t      *testing.T
	srv    *Server
	app    *fiber.App
	mail   *testutil.RecordingMailer
	mr     *miniredis.Miniredis
	config *config.Config
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:                   "test",
		Port:                  "0",
		JWTSecret:             "server-test-secret-0123456789abcdef0123456789",
		SecretKey:             "server-reset-secret-0123456789abcdef012345678",
		AccessTokenTTLMinutes: 60,
		RefreshTokenTTLHours:  24 * 7,
		ResetTokenTTLMinutes:  10,
		UploadFolder:          t.TempDir(),
		MaxUploadSizeMB:       1,
		PublicBaseURL:         "http://amber.test",
		AllowedOrigins:        "http://localhost:5173",
	}
}

// newTestServer builds the full application on in-memory SQLite and miniredis.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return buildTestServer(t, true)
}

// newTestServerWithoutRedis builds the application the way it runs when Redis is down:
// no cache, no revocation list, events go straight to the local hub.
func newTestServerWithoutRedis(t *testing.T) *testServer {
	t.Helper()
	return buildTestServer(t, false)
}

func buildTestServer(t *testing.T, withRedis bool) *testServer {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	var (
		mr  *miniredis.Miniredis
		rdb *redis.Client
	)
	if withRedis {
		mr = miniredis.RunT(t)
		rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
	}

	cfg := testConfig(t)
	mail := &testutil.RecordingMailer{}
	srv, err := newServer(cfg, db, rdb, mail, bcrypt.MinCost)
	require.NoError(t, err)

	return &testServer{t: t, srv: srv, app: srv.App(), mail: mail, mr: mr, config: cfg}
}

// do sends a JSON request (body may be nil) and returns the response with its body read.
func (ts *testServer) do(method, path, token string, body any) (*http.Response, []byte) {
	ts.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return ts.send(req, token)
}

// doForm sends a multipart request with the given fields and an optional image.
func (ts *testServer) doForm(method, path, token string, fields map[string]string, filename string, image []byte) (*http.Response, []byte) {
	ts.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(ts.t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("image", filename)
		require.NoError(ts.t, err)
		_, err = part.Write(image)
		require.NoError(ts.t, err)
	}
	require.NoError(ts.t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return ts.send(req, token)
}

func (ts *testServer) send(req *http.Request, token string) (*http.Response, []byte) {
	ts.t.Helper()
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(ts.t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(ts.t, err)
	return resp, raw
}

// register creates username@example.com and returns its access and refresh tokens.
func (ts *testServer) register(username string) (string, string) {
	ts.t.Helper()
	resp, _ := ts.do(http.MethodPost, "/api/users/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": testPassword,
	})
	require.Equal(ts.t, http.StatusCreated, resp.StatusCode)
	return ts.login(username+"@example.com", testPassword)
}

func (ts *testServer) login(email, password string) (string, string) {
	ts.t.Helper()
	resp, raw := ts.do(http.MethodPost, "/api/users/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(ts.t, http.StatusOK, resp.StatusCode, string(raw))
	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	decode(ts.t, raw, &tokens)
	return tokens.AccessToken, tokens.RefreshToken
}

// admin registers username and flips its admin flag directly in the database.
func (ts *testServer) admin(username string) string {
	ts.t.Helper()
	access, _ := ts.register(username)
	require.NoError(ts.t, ts.srv.db.Model(&models.User{}).
		Where("username = ?", username).
		Update("is_admin", true).Error)
	return access
}

func (ts *testServer) userID(username string) uint {
	ts.t.Helper()
	var user models.User
	require.NoError(ts.t, ts.srv.db.Where("username = ?", username).First(&user).Error)
	return user.ID
}

// resetToken extracts the token from the last mailed reset link.
func (ts *testServer) resetToken() string {
	ts.t.Helper()
	last, ok := ts.mail.Last()
	require.True(ts.t, ok, "no reset mail sent")
	u, err := url.Parse(last.URL)
	require.NoError(ts.t, err)
	return strings.TrimPrefix(u.Path, "/api/users/reset_password/")
}

func decode(t *testing.T, raw []byte, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, dest), string(raw))
}

func errorBody(t *testing.T, raw []byte) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	decode(t, raw, &body)
	return body
}
