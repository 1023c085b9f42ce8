package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	errs "github.com/frahmantamala/finsolve-gateway/internal"
	"github.com/frahmantamala/finsolve-gateway/internal/core/access"
	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = validate.RegisterValidation("roleid", func(fl validator.FieldLevel) bool {
			_, ok := access.ParseRole(fl.Field().String())
			return ok
		})
		_ = validate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			_, ok := access.ParseCategory(fl.Field().String())
			return ok
		})
		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})
	return validate
}

// Struct validates v against its `validate` tags. The returned AppError lists
// every failing field; message is used as the top-level message.
func Struct(v interface{}, message string, code errs.ErrorCode) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errs.NewInternalError("validation failed", err)
	}

	details := errs.ValidationErrors{Errors: make([]errs.ValidationError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		details.Errors = append(details.Errors, errs.ValidationError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
			Code:    string(code),
		})
	}

	return errs.NewValidationError(message, code).WithDetails(details)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", fe.Field())
	case "roleid":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), joinRoles())
	case "category":
		return fmt.Sprintf("%s must be a known document category", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

func joinRoles() string {
	names := make([]string, len(access.Roles))
	for i, r := range access.Roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
