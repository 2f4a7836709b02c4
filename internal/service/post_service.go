package service

import (
	"context"
	"log/slog"
	"strings"

	"amber/internal/middleware"
	"amber/internal/models"
	"amber/internal/notifications"
	"amber/internal/observability"
	"amber/internal/repository"
	"amber/internal/validation"
)

// ImageStore persists uploaded images by filename.
type ImageStore interface {
	Store(ctx context.Context, in ImageUpload) (string, error)
	Remove(ctx context.Context, name string)
}

// PostService implements the post lifecycle for every kind.
type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	images   ImageStore
	events   EventPublisher
}

type CreatePostInput struct {
	Kind           models.PostKind
	UserID         uint
	Description    *string
	Location       *string
	ContactInfo    *string
	VehicleDetails *string
	Image          *ImageUpload
}

type UpdatePostInput struct {
	Kind           models.PostKind
	PostID         uint
	UserID         uint
	Description    *string
	Location       *string
	ContactInfo    *string
	VehicleDetails *string
	Image          *ImageUpload
}

type DeletePostInput struct {
	Kind   models.PostKind
	PostID uint
	UserID uint
}

type SearchPostsInput struct {
	Kind     models.PostKind
	Keyword  string
	Location string
}

// PostDeleted is the payload of the post_deleted event.
type PostDeleted struct {
	ID   uint            `json:"id"`
	Kind models.PostKind `json:"post_type"`
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	images ImageStore,
	events EventPublisher,
) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
		images:   images,
		events:   publisherOrNoop(events),
	}
}

func (s *PostService) fields(description, location, contact, vehicle *string, kind models.PostKind) validation.PostFields {
	f := validation.PostFields{Description: description, Location: location, ContactInfo: contact}
	if kind.HasVehicleDetails() {
		f.VehicleDetails = vehicle
	}
	return f
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if problems := validation.ValidatePostFields(s.fields(in.Description, in.Location, in.ContactInfo, in.VehicleDetails, in.Kind), true); len(problems) > 0 {
		return nil, models.NewValidationErrors(problems)
	}
	if _, err := s.userRepo.GetByID(ctx, in.UserID); err != nil {
		return nil, err
	}

	post := &models.Post{
		Kind:        in.Kind,
		Description: strings.TrimSpace(*in.Description),
		Location:    strings.TrimSpace(*in.Location),
		ContactInfo: strings.TrimSpace(*in.ContactInfo),
		UserID:      in.UserID,
	}
	if in.Kind.HasVehicleDetails() {
		post.VehicleDetails = trimmedOrNil(in.VehicleDetails)
	}

	if in.Image != nil {
		name, err := s.images.Store(ctx, *in.Image)
		if err != nil {
			return nil, err
		}
		post.Image = &name
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		if post.Image != nil {
			s.images.Remove(ctx, *post.Image)
		}
		return nil, err
	}

	observability.PostsCreated.WithLabelValues(string(in.Kind)).Inc()
	middleware.Logger.InfoContext(ctx, "post created",
		slog.String("kind", string(in.Kind)),
		slog.Uint64("post_id", uint64(post.ID)),
	)
	s.events.Publish(ctx, notifications.EventPostCreated, post)
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, kind models.PostKind, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, kind, id)
}

func (s *PostService) ListPosts(ctx context.Context, kind models.PostKind) ([]*models.Post, error) {
	return s.postRepo.List(ctx, kind)
}

func (s *PostService) SearchPosts(ctx context.Context, in SearchPostsInput) ([]*models.Post, error) {
	return s.postRepo.Search(ctx, in.Kind, in.Keyword, in.Location)
}

// ownedPost loads the post and requires userID to own it.
func (s *PostService) ownedPost(ctx context.Context, kind models.PostKind, id, userID uint, denied string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, models.NewForbiddenError(denied)
	}
	return post, nil
}

// UpdatePost applies only the supplied fields. A replaced image file is removed once the new
// row is saved.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.ownedPost(ctx, in.Kind, in.PostID, in.UserID, "Unauthorized to update this post")
	if err != nil {
		return nil, err
	}
	if problems := validation.ValidatePostFields(s.fields(in.Description, in.Location, in.ContactInfo, in.VehicleDetails, in.Kind), false); len(problems) > 0 {
		return nil, models.NewValidationErrors(problems)
	}

	if in.Description != nil {
		post.Description = strings.TrimSpace(*in.Description)
	}
	if in.Location != nil {
		post.Location = strings.TrimSpace(*in.Location)
	}
	if in.ContactInfo != nil {
		post.ContactInfo = strings.TrimSpace(*in.ContactInfo)
	}
	if in.VehicleDetails != nil && in.Kind.HasVehicleDetails() {
		post.VehicleDetails = trimmedOrNil(in.VehicleDetails)
	}

	var previous string
	if in.Image != nil {
		name, err := s.images.Store(ctx, *in.Image)
		if err != nil {
			return nil, err
		}
		if post.Image != nil {
			previous = *post.Image
		}
		post.Image = &name
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		if in.Image != nil {
			s.images.Remove(ctx, *post.Image)
		}
		return nil, err
	}
	if previous != "" {
		s.images.Remove(ctx, previous)
	}

	s.events.Publish(ctx, notifications.EventPostUpdated, post)
	return post, nil
}

// DeletePost removes the post with its comments, then its image file.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	post, err := s.ownedPost(ctx, in.Kind, in.PostID, in.UserID, "Unauthorized to delete this post")
	if err != nil {
		return err
	}
	if err := s.postRepo.Delete(ctx, post); err != nil {
		return err
	}
	if post.Image != nil {
		s.images.Remove(ctx, *post.Image)
	}

	middleware.Logger.InfoContext(ctx, "post deleted",
		slog.String("kind", string(in.Kind)),
		slog.Uint64("post_id", uint64(post.ID)),
	)
	s.events.Publish(ctx, notifications.EventPostDeleted, PostDeleted{ID: post.ID, Kind: post.Kind})
	return nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
