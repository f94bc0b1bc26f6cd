// Package validation wraps go-playground/validator with the field rules the
// directory needs and converts failures into domain errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	dErrors "phonebook/pkg/domain-errors"
)

var (
	alphaNamePattern = regexp.MustCompile(`^[a-zA-Z]+$`)
	phonePattern     = regexp.MustCompile(`^[0-9+\-() ]+$`)
	digitsPattern    = regexp.MustCompile(`^[0-9]+$`)
)

var defaultValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("alphaname", func(fl validator.FieldLevel) bool {
		return IsAlphaName(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return IsPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		return IsDigits(fl.Field().String())
	})
	return v
}

// IsAlphaName reports whether name is one or more ASCII letters.
func IsAlphaName(name string) bool {
	return alphaNamePattern.MatchString(name)
}

// IsPhone reports whether phone uses only digits, '+', '-', '(', ')' and
// spaces, with at least one character.
func IsPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// IsDigits reports whether v is one or more decimal digits.
func IsDigits(v string) bool {
	return digitsPattern.MatchString(v)
}

// Validate validates a struct and returns a CodeValidation domain error
// describing the first failing field.
func Validate(req any) error {
	if err := defaultValidator.Struct(req); err != nil {
		return dErrors.New(dErrors.CodeValidation, ErrorMessage(err))
	}
	return nil
}

// ErrorMessage converts a validator error into a human-readable message.
func ErrorMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "invalid request body"
	}

	fe := validationErrs[0]
	fieldName := fe.Field()
	if fieldName == "" {
		fieldName = fe.StructField()
	}
	field := snakeCase(fieldName)

	switch fe.ActualTag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", field)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "alphaname":
		return fmt.Sprintf("%s must contain only alphabetic characters", field)
	case "phone":
		return fmt.Sprintf("%s may only contain digits, spaces and the symbols + - ( )", field)
	case "digits":
		return fmt.Sprintf("%s must contain only digits", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// snakeCase turns "PhoneNumber" into "phone_number" so messages name fields
// the way the forms and JSON bodies do.
func snakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 &&
			(unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
