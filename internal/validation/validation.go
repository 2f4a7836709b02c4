// Package validation provides input validation utilities
package validation

import (
	"errors"
	"fmt"
	"strings"

	"amber/internal/models"

	"github.com/go-playground/validator/v10"
)

// MaxFieldLength bounds every free-text column.
const MaxFieldLength = 255

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates s using its `validate` tags and returns an aggregated VALIDATION_ERROR.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return models.NewValidationError(err.Error())
	}

	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, describe(fe))
	}
	return models.NewValidationErrors(details)
}

func describe(fe validator.FieldError) string {
	field := humanize(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required."
	case "min":
		return fmt.Sprintf("%s must be at least %s.", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s.", field, fe.Param())
	case "email":
		return "Invalid email format"
	default:
		return fmt.Sprintf("%s is invalid.", field)
	}
}

// humanize turns a Go field name such as ReviewedUserID into "Reviewed user id".
func humanize(name string) string {
	var b strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' && !(name[i-1] >= 'A' && name[i-1] <= 'Z') {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	s := strings.ToLower(b.String())
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// PostFields carries the free-text post fields; nil means "not supplied".
type PostFields struct {
	Description    *string
	Location       *string
	ContactInfo    *string
	VehicleDetails *string
}

// ValidatePostFields collects every problem with the post fields. When requireAll is set,
// missing fields are reported; supplied fields must always be non-empty and within length.
func ValidatePostFields(f PostFields, requireAll bool) []string {
	var problems []string
	check := func(v *string, required, tooLong string) {
		if v == nil {
			if requireAll {
				problems = append(problems, required)
			}
			return
		}
		if strings.TrimSpace(*v) == "" {
			problems = append(problems, required)
			return
		}
		if len(*v) > MaxFieldLength {
			problems = append(problems, tooLong)
		}
	}

	check(f.Description, "Description is required.", "Description must be at most 255 characters.")
	check(f.Location, "Location is required.", "Location must be at most 255 characters.")
	check(f.ContactInfo, "Contact information is required.", "Contact information must be at most 255 characters.")

	if f.VehicleDetails != nil && len(*f.VehicleDetails) > MaxFieldLength {
		problems = append(problems, "Vehicle details must be at most 255 characters.")
	}
	return problems
}
