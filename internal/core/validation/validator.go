// Package validation wraps go-playground/validator with the account rules and
// converts its errors into *domain.ValidationError.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/99minutos/account-system/internal/core/domain"
)

// Validator validates request structs. It also satisfies echo.Validator.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return domain.PasswordPolicyViolation(fl.Field().String()) == ""
	})
	return &Validator{v: v}
}

// Validate returns nil or a *domain.ValidationError listing every failed field.
func (ev *Validator) Validate(i any) error {
	err := ev.v.Struct(i)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	out := &domain.ValidationError{Fields: make([]domain.FieldError, 0, len(ve))}
	for _, fe := range ve {
		out.Fields = append(out.Fields, domain.FieldError{
			Field:   strings.ToLower(fe.Field()),
			Message: fieldError(fe),
		})
	}
	return out
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "password":
		if s, ok := fe.Value().(string); ok {
			return domain.PasswordPolicyViolation(s)
		}
		if s, ok := fe.Value().(*string); ok && s != nil {
			return domain.PasswordPolicyViolation(*s)
		}
		return "password does not meet the policy"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
