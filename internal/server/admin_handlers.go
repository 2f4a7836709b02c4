package server

import (
	"amber/internal/models"
	"amber/internal/service"

	"github.com/gofiber/fiber/v2"
)

const userNotFound = "User not found"

func publicUsers(users []models.User) []models.PublicUser {
	out := make([]models.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out
}

// AdminAnalytics handles GET /api/admin/analytics
func (s *Server) AdminAnalytics(c *fiber.Ctx) error {
	stats, err := s.adminService.Analytics(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// AdminListUsers handles GET /api/admin/users
func (s *Server) AdminListUsers(c *fiber.Ctx) error {
	users, err := s.adminService.ListUsers(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(publicUsers(users))
}

// AdminCreateUser handles POST /api/admin/users
func (s *Server) AdminCreateUser(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		IsAdmin  bool   `json:"is_admin"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	user, err := s.adminService.CreateUser(c.UserContext(), service.NewAccountInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user.Public())
}

// AdminGetUser handles GET /api/admin/users/:id
func (s *Server) AdminGetUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id", userNotFound)
	if err != nil {
		return nil
	}

	user, err := s.adminService.GetUser(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user.Public())
}

// AdminUpdateUser handles PUT /api/admin/users/:id
func (s *Server) AdminUpdateUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id", userNotFound)
	if err != nil {
		return nil
	}

	var req struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
		Password *string `json:"password"`
		IsAdmin  *bool   `json:"is_admin"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	user, err := s.adminService.UpdateUser(c.UserContext(), service.AdminUpdateUserInput{
		UserID:   id,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user.Public())
}

// AdminDeleteUser handles DELETE /api/admin/users/:id
func (s *Server) AdminDeleteUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id", userNotFound)
	if err != nil {
		return nil
	}

	if err := s.adminService.DeleteUser(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}

// AdminUserActivity handles GET /api/admin/users/:id/activity
func (s *Server) AdminUserActivity(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id", userNotFound)
	if err != nil {
		return nil
	}

	activity, err := s.adminService.UserActivity(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(activity)
}
