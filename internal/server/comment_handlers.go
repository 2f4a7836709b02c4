package server

import (
	"amber/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateComment handles POST /api/{kind}/:id/comment
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id", postNotFound)
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content" form:"content"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return invalidBody(c)
	}

	created, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		Kind:    postKind(c),
		PostID:  postID,
		UserID:  currentUserID(c),
		Content: req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetComments handles GET /api/{kind}/:id/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id", postNotFound)
	if err != nil {
		return nil
	}

	comments, err := s.commentService.ListComments(c.UserContext(), postKind(c), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comments)
}
