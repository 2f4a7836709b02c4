// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"strings"

	"amber/internal/cache"
	"amber/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error)
	UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) ([]string, error)
	List(ctx context.Context) ([]models.User, error)
	ListAdmins(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	db    *gorm.DB
	cache *cache.Store
}

// NewUserRepository returns a new UserRepository implementation. store is the post cache the
// user's posts live in and may be nil.
func NewUserRepository(db *gorm.DB, store *cache.Store) UserRepository {
	return &userRepository{db: db, cache: store}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, wrapLookup(err, "User not found")
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, wrapLookup(err, "User not found")
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, wrapLookup(err, "User not found")
	}
	return &user, nil
}

func (r *userRepository) EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) = ? AND id <> ?", strings.ToLower(strings.TrimSpace(email)), excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *userRepository) UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? AND id <> ?", username, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("Username or email already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Update saves the user and evicts their cached posts, which embed the owner's username.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("Username or email already exists")
		}
		return models.NewInternalError(err)
	}

	var postIDs []uint
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("user_id = ?", user.ID).Pluck("id", &postIDs).Error; err != nil {
		return models.NewInternalError(err)
	}
	r.forgetPosts(ctx, postIDs)
	return nil
}

// Delete removes the user together with their posts, the comments on those posts, their own
// comments and every review they wrote or received. It returns the image filenames of the
// deleted posts so the caller can drop them from storage.
func (r *userRepository) Delete(ctx context.Context, id uint) ([]string, error) {
	var (
		images  []string
		postIDs []uint
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			return wrapLookup(err, "User not found")
		}

		var posts []models.Post
		if err := tx.Select("id", "image").Where("user_id = ?", id).Find(&posts).Error; err != nil {
			return err
		}
		for _, p := range posts {
			postIDs = append(postIDs, p.ID)
			if p.Image != nil && *p.Image != "" {
				images = append(images, *p.Image)
			}
		}

		comments := tx.Where("user_id = ?", id)
		if len(postIDs) > 0 {
			comments = tx.Where("user_id = ? OR post_id IN ?", id, postIDs)
		}
		if err := comments.Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? OR reviewed_user_id = ?", id, id).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		return nil, asAppError(err)
	}
	r.forgetPosts(ctx, postIDs)
	return images, nil
}

func (r *userRepository) forgetPosts(ctx context.Context, ids []uint) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, cache.PostKey(id))
	}
	r.cache.Invalidate(ctx, keys...)
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Where("is_admin = ?", true).Order("id ASC").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}
