package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sahilchouksey/byteboost-api/utils/apperr"
)

var (
	// SlugRegex matches lowercase url slugs such as "intro-to-go"
	SlugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// Enum is implemented by closed string sets
type Enum interface {
	Valid() bool
}

// Validator wraps the go-playground validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance with the project tags registered
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report json names so messages line up with request payloads
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("enum", validateEnum)
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return SlugRegex.MatchString(fl.Field().String())
	})

	return &Validator{validate: v}
}

func validateEnum(fl validator.FieldLevel) bool {
	e, ok := fl.Field().Interface().(Enum)
	if !ok {
		return false
	}
	return e.Valid()
}

// ValidateEntity validates s and reports the first violation as an *apperr.ValidationError
func (v *Validator) ValidateEntity(entity string, s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationError(entity, err)
	}
	return nil
}

// ToValidationError converts validator output into the apperr taxonomy
func ToValidationError(entity string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation(entity, "", "invalid", err.Error())
	}

	fe := verrs[0]
	return apperr.Validation(entity, fe.Field(), fe.Tag(), describe(fe))
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", e.Field())
	case "email":
		return "Invalid email format"
	case "min":
		return fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", e.Field(), e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", e.Field(), e.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", e.Field(), e.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", e.Field(), e.Param())
	case "gtfield":
		return fmt.Sprintf("%s must be after %s", e.Field(), e.Param())
	case "enum", "oneof":
		return fmt.Sprintf("%v is not a valid %s", e.Value(), e.Field())
	case "slug":
		return fmt.Sprintf("%s must contain only lowercase letters, digits and dashes", e.Field())
	default:
		return fmt.Sprintf("%s is invalid", e.Field())
	}
}

// Slugify lowercases s and joins its alphanumeric runs with dashes
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlugChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SanitizeString drops NUL bytes, which Postgres rejects in text columns, and trims whitespace
func SanitizeString(s string) string {
	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")
	// Trim whitespace
	s = strings.TrimSpace(s)
	return s
}
