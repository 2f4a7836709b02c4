package server

import (
	"github.com/gofiber/fiber/v2"
)

// ServeUpload handles GET /uploads/:filename
func (s *Server) ServeUpload(c *fiber.Ctx) error {
	path, err := s.imageService.Resolve(c.Params("filename"))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	return c.SendFile(path)
}
