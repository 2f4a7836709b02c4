package server

import (
	"amber/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.CurrentUser(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user.Public())
}

// UpdateMyProfile handles PUT /api/users/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
		Password *string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:   currentUserID(c),
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user.Public())
}

// GetUserReviews handles GET /api/users/:id/reviews
func (s *Server) GetUserReviews(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id", "User not found")
	if err != nil {
		return nil
	}

	reviews, err := s.reviewService.ListReviews(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reviews)
}

// CreateReview handles POST /api/users/:id/reviews
func (s *Server) CreateReview(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id", "User not found")
	if err != nil {
		return nil
	}

	var req struct {
		Rating int     `json:"rating"`
		Review *string `json:"review"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	review, err := s.reviewService.CreateReview(c.UserContext(), service.CreateReviewInput{
		ReviewerID:     currentUserID(c),
		ReviewedUserID: id,
		Rating:         req.Rating,
		Review:         req.Review,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(review)
}
