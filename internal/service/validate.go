package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"fieldops/internal/domain"

	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.]{3,50}$`)

// newValidator request validator; field names in messages follow json tags.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("fieldtype", func(fl validator.FieldLevel) bool {
		return domain.KnownFieldType(fl.Field().String())
	})
	return v
}

func validateStruct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return validationf(err.Error())
	}
	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		msgs = append(msgs, describeFieldError(fe))
	}
	return validationf(strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s needs at least %s item(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	case "url":
		return field + " must be a valid URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "fieldtype":
		return fmt.Sprintf("%s %q is not supported", field, fe.Value())
	case "username":
		return field + " must be 3-50 characters of letters, digits, '_' or '.'"
	case "datetime":
		return fmt.Sprintf("%s must match %s", field, fe.Param())
	case "latitude", "longitude":
		return field + " is out of range"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
