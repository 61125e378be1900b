package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validator exposes the shared validator instance so handlers validate request payloads
// with the same rules the stores apply.
func Validator() *validator.Validate {
	return validate
}

// ValidateStruct runs the struct tags of v and converts failures into a *ValidationError.
func ValidateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("validate: %w", err)
	}
	fields := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		fields[strings.ToLower(e.Field())] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return &ValidationError{Fields: fields}
}

// ValidateItem normalises item and checks the catalog invariants: non-empty name and
// category, non-negative price and quantity.
func ValidateItem(item *Item) error {
	item.Name = strings.TrimSpace(item.Name)
	item.Category = strings.TrimSpace(item.Category)
	item.Image = strings.TrimSpace(item.Image)
	return ValidateStruct(item)
}
