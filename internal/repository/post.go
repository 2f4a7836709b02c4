package repository

import (
	"context"
	"strings"

	"amber/internal/cache"
	"amber/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations. Every lookup is scoped to a
// kind: an id that belongs to another kind is reported as missing.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, kind models.PostKind, id uint) (*models.Post, error)
	List(ctx context.Context, kind models.PostKind) ([]*models.Post, error)
	Search(ctx context.Context, kind models.PostKind, keyword, location string) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, post *models.Post) error
	ListSummariesByUser(ctx context.Context, userID uint) ([]models.PostSummary, error)
	Count(ctx context.Context) (int64, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db    *gorm.DB
	cache *cache.Store
}

// NewPostRepository creates a new post repository. store may be nil.
func NewPostRepository(db *gorm.DB, store *cache.Store) PostRepository {
	return &postRepository{db: db, cache: store}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	post.Normalize()
	if err := r.db.WithContext(ctx).Omit("User").Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).Preload("User").First(post, post.ID).Error; err != nil {
		return models.NewInternalError(err)
	}
	post.Normalize()
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, kind models.PostKind, id uint) (*models.Post, error) {
	var post models.Post
	err := r.cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		if err := r.db.WithContext(ctx).Preload("User").First(&post, id).Error; err != nil {
			return err
		}
		post.Normalize()
		return nil
	})
	if err != nil {
		return nil, wrapLookup(err, "Post not found")
	}
	if post.Kind != kind {
		return nil, models.NewNotFoundError("Post not found")
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, kind models.PostKind) ([]*models.Post, error) {
	return r.find(r.db.WithContext(ctx).Where("post_type = ?", kind))
}

func (r *postRepository) Search(ctx context.Context, kind models.PostKind, keyword, location string) ([]*models.Post, error) {
	q := r.db.WithContext(ctx).Where("post_type = ?", kind)
	if keyword = strings.TrimSpace(keyword); keyword != "" {
		q = q.Where(`LOWER(description) LIKE ? ESCAPE '\'`, containsPattern(keyword))
	}
	if location = strings.TrimSpace(location); location != "" {
		q = q.Where(`LOWER(location) LIKE ? ESCAPE '\'`, containsPattern(location))
	}
	return r.find(q)
}

func (r *postRepository) find(q *gorm.DB) ([]*models.Post, error) {
	posts := []*models.Post{}
	if err := q.Preload("User").Order("date_posted DESC, id DESC").Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, p := range posts {
		p.Normalize()
	}
	return posts, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	post.Normalize()
	if err := r.db.WithContext(ctx).Omit("User").Save(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	r.cache.Invalidate(ctx, cache.PostKey(post.ID))
	return nil
}

// Delete removes the post and its comments in a single transaction.
func (r *postRepository) Delete(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, post.ID).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	r.cache.Invalidate(ctx, cache.PostKey(post.ID))
	return nil
}

func (r *postRepository) ListSummariesByUser(ctx context.Context, userID uint) ([]models.PostSummary, error) {
	summaries := []models.PostSummary{}
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Select("id", "description", "date_posted").
		Where("user_id = ?", userID).
		Order("date_posted ASC, id ASC").
		Scan(&summaries).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return summaries, nil
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&count).Error
	return count, err
}
