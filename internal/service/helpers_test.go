package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"amber/internal/auth"
	"amber/internal/cache"
	"amber/internal/database"
	"amber/internal/models"
	"amber/internal/repository"
	"amber/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type imageStoreStub struct {
	stored   []string
	removed  []string
	storeErr error
}

func (s *imageStoreStub) Store(_ context.Context, in ImageUpload) (string, error) {
	if s.storeErr != nil {
		return "", s.storeErr
	}
	name := fmt.Sprintf("%08x_%s", len(s.stored)+1, SanitizeFilename(in.Filename))
	s.stored = append(s.stored, name)
	return name, nil
}

func (s *imageStoreStub) Remove(_ context.Context, name string) {
	s.removed = append(s.removed, name)
}

type env struct {
	db       *gorm.DB
	mr       *miniredis.Miniredis
	store    *cache.Store
	tokens   *auth.TokenService
	users    repository.UserRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	events   *testutil.RecordingPublisher
	mail     *testutil.RecordingMailer
	images   *imageStoreStub

	userSvc    *UserService
	postSvc    *PostService
	commentSvc *CommentService
	reviewSvc  *ReviewService
	adminSvc   *AdminService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := &env{
		db:     db,
		mr:     mr,
		store:  cache.NewStore(rdb),
		events: &testutil.RecordingPublisher{},
		mail:   &testutil.RecordingMailer{},
		images: &imageStoreStub{},
		tokens: auth.NewTokenService(auth.Options{
			JWTSecret:   "service-test-secret-0123456789abcdef0123456789",
			ResetSecret: "service-reset-secret-0123456789abcdef01234567",
			AccessTTL:   time.Hour,
			RefreshTTL:  7 * 24 * time.Hour,
			ResetTTL:    10 * time.Minute,
		}),
	}
	e.users = repository.NewUserRepository(db, e.store)
	e.posts = repository.NewPostRepository(db, e.store)
	e.comments = repository.NewCommentRepository(db)

	e.userSvc = NewUserService(e.users, UserServiceOptions{
		Tokens:       e.tokens,
		Store:        e.store,
		Mailer:       e.mail,
		ResetBaseURL: "https://amber.test/",
		HashCost:     bcrypt.MinCost,
	})
	e.postSvc = NewPostService(e.posts, e.users, e.images, e.events)
	e.commentSvc = NewCommentService(e.comments, e.posts, e.users, e.events)
	e.reviewSvc = NewReviewService(repository.NewReviewRepository(db), e.users)
	e.adminSvc = NewAdminService(e.users, e.posts, e.comments, repository.NewAnalyticsRepository(db), e.images, bcrypt.MinCost)
	return e
}

func (e *env) register(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := e.userSvc.Register(context.Background(), NewAccountInput{
		Email:    username + "@example.com",
		Password: "correct-horse-1",
		Username: username,
	})
	require.NoError(t, err)
	return u
}

func (e *env) createPost(t *testing.T, kind models.PostKind, owner *models.User, description string) *models.Post {
	t.Helper()
	p, err := e.postSvc.CreatePost(context.Background(), CreatePostInput{
		Kind:        kind,
		UserID:      owner.ID,
		Description: strPtr(description),
		Location:    strPtr("Main St"),
		ContactInfo: strPtr("555-1234"),
	})
	require.NoError(t, err)
	return p
}

func strPtr(s string) *string { return &s }

func assertAppError(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	require.Equal(t, code, appErr.Code, appErr.Message)
	return appErr
}
