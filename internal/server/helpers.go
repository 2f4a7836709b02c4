package server

import (
	"errors"
	"io"
	"strings"

	"amber/internal/auth"
	"amber/internal/models"
	"amber/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// respondError writes err with the status its code maps to.
func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithAppError(c, err)
}

func invalidBody(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusBadRequest,
		models.NewValidationError("Invalid request body"))
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 404 JSON response, since a malformed id can never name a
// resource, and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param, notFound string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError(notFound))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// bearerToken returns the token of an "Authorization: Bearer <token>" header, or "".
func bearerToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(localUserID).(uint)
	return id
}

func currentClaims(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(localClaims).(*auth.Claims)
	return claims
}

// withPostKind scopes a route group to one post kind.
func withPostKind(kind models.PostKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(localPostKind, kind)
		return c.Next()
	}
}

func postKind(c *fiber.Ctx) models.PostKind {
	kind, _ := c.Locals(localPostKind).(models.PostKind)
	return kind
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

// formImage reads the optional "image" part of a multipart request. A request without the
// part yields nil.
func formImage(c *fiber.Ctx) (*service.ImageUpload, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	file, err := c.FormFile("image")
	if err != nil {
		return nil, nil
	}
	if file.Filename == "" {
		return nil, models.NewValidationError("No selected file")
	}

	src, err := file.Open()
	if err != nil {
		return nil, models.NewValidationError("Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return nil, models.NewValidationError("Unable to read uploaded file")
	}
	return &service.ImageUpload{Filename: file.Filename, Content: content}, nil
}
