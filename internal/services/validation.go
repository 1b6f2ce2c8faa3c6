package services

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// plainDecimal rejects exponent notation and signs so prices are stored as typed.
var plainDecimal = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// NewValidator returns a validator that reports JSON field names and knows
// the "decimal" tag: a non-negative decimal number written as a string.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("decimal", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if !plainDecimal.MatchString(s) {
			return false
		}
		d, err := decimal.NewFromString(s)
		return err == nil && !d.IsNegative()
	})
	return v
}

// FieldErrors flattens validator output into field -> message.
func FieldErrors(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	messages := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		messages[e.Field()] = describeRule(e)
	}
	return messages
}

func describeRule(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This value should not be blank."
	case "max":
		return fmt.Sprintf("This value is too long. It should have %s characters or less.", e.Param())
	case "decimal":
		return "This value should be a non-negative decimal number."
	case "email":
		return "This value is not a valid email address."
	case "min":
		return fmt.Sprintf("This value is too short. It should have %s characters or more.", e.Param())
	default:
		return fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
}
