package server

import (
	"amber/internal/models"
	"amber/internal/service"

	"github.com/gofiber/fiber/v2"
)

const resetRequestedMessage = "If an account with that email exists, a password reset link has been sent."

// Register handles POST /api/users/register
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	if _, err := s.userService.Register(c.UserContext(), service.NewAccountInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	}); err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
	})
}

// Login handles POST /api/users/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	pair, err := s.userService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"message":       "Login successful",
	})
}

// Refresh handles POST /api/users/refresh. The refresh token travels in the
// Authorization header.
func (s *Server) Refresh(c *fiber.Ctx) error {
	token := bearerToken(c)
	if token == "" {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization required"))
	}

	access, err := s.userService.Refresh(c.UserContext(), token)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"access_token": access})
}

// Logout handles POST /api/users/logout
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.userService.Logout(c.UserContext(), currentClaims(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Successfully logged out"})
}

// RequestPasswordReset handles POST /api/users/reset_password. The response does not
// reveal whether the address is registered.
func (s *Server) RequestPasswordReset(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	if err := s.userService.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": resetRequestedMessage})
}

// ResetPassword handles POST /api/users/reset_password/:token
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
	}

	if err := s.userService.ResetPassword(c.UserContext(), service.ResetPasswordInput{
		Token:    c.Params("token"),
		Password: req.Password,
	}); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password has been updated"})
}
