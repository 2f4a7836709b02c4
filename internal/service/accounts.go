package service

import (
	"context"
	"strconv"
	"strings"

	"amber/internal/models"
	"amber/internal/repository"
	"amber/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 30
)

// NewAccountInput is the shared payload of self-registration and admin user creation.
type NewAccountInput struct {
	Email    string
	Password string
	Username string
	IsAdmin  bool
}

// accounts holds the rules every new or edited account must satisfy.
type accounts struct {
	users    repository.UserRepository
	hashCost int
}

func (a accounts) cost() int {
	if a.hashCost == 0 {
		return bcrypt.DefaultCost
	}
	return a.hashCost
}

func (a accounts) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), a.cost())
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return string(hashed), nil
}

// build validates in and returns an unsaved user with a hashed password. A blank username is
// derived from the e-mail address.
func (a accounts) build(ctx context.Context, in NewAccountInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)
	if email == "" || in.Password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := a.ensureEmailFree(ctx, email, 0); err != nil {
		return nil, err
	}

	if username == "" {
		derived, err := a.deriveUsername(ctx, email)
		if err != nil {
			return nil, err
		}
		username = derived
	} else {
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		if err := a.ensureUsernameFree(ctx, username, 0); err != nil {
			return nil, err
		}
	}

	hashed, err := a.hash(in.Password)
	if err != nil {
		return nil, err
	}
	return &models.User{
		Username: username,
		Email:    email,
		Password: hashed,
		IsAdmin:  in.IsAdmin,
	}, nil
}

func (a accounts) ensureEmailFree(ctx context.Context, email string, excludeID uint) error {
	taken, err := a.users.EmailTaken(ctx, email, excludeID)
	if err != nil {
		return models.NewInternalError(err)
	}
	if taken {
		return models.NewConflictError("Email already registered")
	}
	return nil
}

func (a accounts) ensureUsernameFree(ctx context.Context, username string, excludeID uint) error {
	taken, err := a.users.UsernameTaken(ctx, username, excludeID)
	if err != nil {
		return models.NewInternalError(err)
	}
	if taken {
		return models.NewConflictError("Username already taken")
	}
	return nil
}

// applyChanges validates and applies optional username, email and password edits to user.
func (a accounts) applyChanges(ctx context.Context, user *models.User, username, email, password *string) error {
	if username != nil {
		name := strings.TrimSpace(*username)
		if err := validation.ValidateUsername(name); err != nil {
			return models.NewValidationError(err.Error())
		}
		if name != user.Username {
			if err := a.ensureUsernameFree(ctx, name, user.ID); err != nil {
				return err
			}
			user.Username = name
		}
	}
	if email != nil {
		addr := strings.ToLower(strings.TrimSpace(*email))
		if err := validation.ValidateEmail(addr); err != nil {
			return models.NewValidationError(err.Error())
		}
		if addr != user.Email {
			if err := a.ensureEmailFree(ctx, addr, user.ID); err != nil {
				return err
			}
			user.Email = addr
		}
	}
	if password != nil {
		if err := validation.ValidatePassword(*password); err != nil {
			return models.NewValidationError(err.Error())
		}
		hashed, err := a.hash(*password)
		if err != nil {
			return err
		}
		user.Password = hashed
	}
	return nil
}

// deriveUsername turns the e-mail local part into a valid, unused username, appending a
// numeric suffix when the plain form is taken.
func (a accounts) deriveUsername(ctx context.Context, email string) (string, error) {
	local, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	for _, r := range local {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r == '.' || r == '+':
			b.WriteByte('_')
		}
	}
	base := strings.Trim(b.String(), "_-")
	if len(base) < minUsernameLen {
		base = "user" + base
	}
	if len(base) > maxUsernameLen {
		base = strings.TrimRight(base[:maxUsernameLen], "_-")
	}

	candidate := base
	for n := 2; ; n++ {
		taken, err := a.users.UsernameTaken(ctx, candidate, 0)
		if err != nil {
			return "", models.NewInternalError(err)
		}
		if !taken {
			return candidate, nil
		}
		suffix := strconv.Itoa(n)
		trimmed := base
		if len(trimmed)+len(suffix) > maxUsernameLen {
			trimmed = strings.TrimRight(trimmed[:maxUsernameLen-len(suffix)], "_-")
		}
		candidate = trimmed + suffix
	}
}
