/*
validate.go - Booking field validation

PURPOSE:
  Every booking must pass validation before any store or ledger call.
  Validation failures are local and non-retryable; the caller corrects
  the input and resubmits.

RULES:
  - customerName: non-empty
  - email: well-formed
  - contactNumber: at least 10 digits (separators ignored)
  - date: set
  - category, platform, status: members of their closed sets
  - basePay, commission, markup: non-negative

The struct-level rules use go-playground/validator; the rules that need
domain types (closed sets, decimal amounts) are checked directly.
*/
package booking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrValidation is the sentinel for all validation failures.
var ErrValidation = errors.New("booking validation failed")

// ValidationError reports the first failing field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid booking: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// validatedFields mirrors the Booking fields the validator library can
// check with tags. Domain-typed fields are checked separately.
type validatedFields struct {
	CustomerName  string `validate:"required"`
	Email         string `validate:"required,email"`
	ContactNumber string `validate:"required,contact"`
}

// Validator checks bookings before they are accepted.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	// contact: at least 10 digits once separators are stripped.
	v.RegisterValidation("contact", func(fl validator.FieldLevel) bool {
		digits := 0
		for _, r := range fl.Field().String() {
			switch {
			case r >= '0' && r <= '9':
				digits++
			case r == ' ' || r == '-' || r == '+' || r == '(' || r == ')':
				// separator, ignore
			default:
				return false
			}
		}
		return digits >= 10
	})
	return &Validator{validate: v}
}

// Validate returns nil if b is acceptable, or a ValidationError naming
// the first offending field.
func (v *Validator) Validate(b Booking) error {
	fields := validatedFields{
		CustomerName:  strings.TrimSpace(b.CustomerName),
		Email:         strings.TrimSpace(b.Email),
		ContactNumber: strings.TrimSpace(b.ContactNumber),
	}
	if err := v.validate.Struct(fields); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) && len(invalid) > 0 {
			return &ValidationError{
				Field:   fieldName(invalid[0].Field()),
				Message: tagMessage(invalid[0].Tag()),
			}
		}
		return &ValidationError{Field: "booking", Message: "is invalid"}
	}

	if b.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "is required"}
	}
	if _, ok := ParseCategory(string(b.Category)); !ok {
		return &ValidationError{Field: "category", Message: "is not a known category"}
	}
	if _, ok := ParsePlatform(string(b.Platform)); !ok {
		return &ValidationError{Field: "platform", Message: "is not a known platform"}
	}
	if _, ok := ParseStatus(string(b.Status)); !ok {
		return &ValidationError{Field: "status", Message: "is not a known status"}
	}
	if b.BasePay.IsNegative() {
		return &ValidationError{Field: "basePay", Message: "must not be negative"}
	}
	if b.Commission.IsNegative() {
		return &ValidationError{Field: "commission", Message: "must not be negative"}
	}
	if b.Markup.IsNegative() {
		return &ValidationError{Field: "markup", Message: "must not be negative"}
	}
	return nil
}

func fieldName(structField string) string {
	switch structField {
	case "CustomerName":
		return "customerName"
	case "Email":
		return "email"
	case "ContactNumber":
		return "contactNumber"
	}
	return structField
}

func tagMessage(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "contact":
		return "must contain at least 10 digits"
	}
	return "is invalid"
}
