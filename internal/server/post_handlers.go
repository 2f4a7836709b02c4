package server

import (
	"amber/internal/featureflags"
	"amber/internal/models"
	"amber/internal/service"

	"github.com/gofiber/fiber/v2"
)

const postNotFound = "Post not found"

// postRequest is the body of create and update requests, sent either as JSON or as
// multipart/form-data with an optional "image" file.
type postRequest struct {
	Description    *string `json:"description" form:"description"`
	Location       *string `json:"location" form:"location"`
	ContactInfo    *string `json:"contact_info" form:"contact_info"`
	VehicleDetails *string `json:"vehicle_details" form:"vehicle_details"`
}

func (s *Server) parsePostRequest(c *fiber.Ctx) (*postRequest, *service.ImageUpload, error) {
	var req postRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return nil, nil, models.NewValidationError("Invalid request body")
		}
	}
	image, err := formImage(c)
	if err != nil {
		return nil, nil, err
	}
	if image != nil && !s.featureFlags.Enabled(featureflags.ImageUploads, currentUserID(c)) {
		return nil, nil, models.NewValidationError("Image uploads are disabled")
	}
	return &req, image, nil
}

// ListPosts handles GET /api/{kind}
func (s *Server) ListPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListPosts(c.UserContext(), postKind(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// SearchPosts handles GET /api/{kind}/search?keyword=...&location=...
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	posts, err := s.postService.SearchPosts(c.UserContext(), service.SearchPostsInput{
		Kind:     postKind(c),
		Keyword:  c.Query("keyword"),
		Location: c.Query("location"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/{kind}/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id", postNotFound)
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), postKind(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/{kind}
func (s *Server) CreatePost(c *fiber.Ctx) error {
	req, image, err := s.parsePostRequest(c)
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		Kind:           postKind(c),
		UserID:         currentUserID(c),
		Description:    req.Description,
		Location:       req.Location,
		ContactInfo:    req.ContactInfo,
		VehicleDetails: req.VehicleDetails,
		Image:          image,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/{kind}/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id", postNotFound)
	if err != nil {
		return nil
	}

	req, image, err := s.parsePostRequest(c)
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		Kind:           postKind(c),
		PostID:         id,
		UserID:         currentUserID(c),
		Description:    req.Description,
		Location:       req.Location,
		ContactInfo:    req.ContactInfo,
		VehicleDetails: req.VehicleDetails,
		Image:          image,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/{kind}/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id", postNotFound)
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		Kind:   postKind(c),
		PostID: id,
		UserID: currentUserID(c),
	}); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted successfully"})
}
