// Package validation holds the shared validator instance used at every trust
// boundary (request bodies, webhook payloads, models before persistence).
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	instance *validator.Validate
	once     sync.Once
)

// Validator returns the process-wide validator. validator.Validate caches
// struct metadata and is safe for concurrent use.
func Validator() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		instance.RegisterTagNameFunc(func(field reflect.StructField) string {
			return jsonName(field.Tag.Get("json"), field.Name)
		})
	})
	return instance
}

// Struct validates s and returns nil or validator.ValidationErrors.
func Struct(s interface{}) error {
	return Validator().Struct(s)
}

// Var validates a single value against a tag expression, e.g. "email".
func Var(value interface{}, tag string) error {
	return Validator().Var(value, tag)
}

// FieldErrors flattens a validation error into field -> message pairs suitable
// for a JSON response body. Non-validation errors are reported under "_".
func FieldErrors(err error) map[string]string {
	out := make(map[string]string)
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["_"] = "invalid input"
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}

func jsonName(tag, fallback string) string {
	name := strings.SplitN(tag, ",", 2)[0]
	if name == "-" || name == "" {
		return fallback
	}
	return name
}
