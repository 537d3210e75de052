package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError describes malformed input to a write operation. It matches ErrValidation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func NewValidationError(field, code, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Code: code, Message: message}}}
}

// AsValidationError extracts field details when err is a ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func ValidateCustomerInput(input CustomerInput) error {
	return fromValidator(validate.Struct(input), nil)
}

// ValidatePaymentInput checks a charge before it reaches the provider. today is the
// current calendar date in the reporting timezone; a due date of today is accepted.
func ValidatePaymentInput(input PaymentInput, today Date) error {
	var extra []FieldError
	if !input.Value.IsPositive() {
		extra = append(extra, FieldError{Field: "value", Code: "invalid_value", Message: "value must be greater than zero"})
	}
	switch {
	case input.DueDate.IsZero():
		extra = append(extra, FieldError{Field: "due_date", Code: "required", Message: "due_date is required"})
	case input.DueDate.Before(today):
		extra = append(extra, FieldError{Field: "due_date", Code: "past_due_date", Message: "due_date cannot be in the past"})
	}
	return fromValidator(validate.Struct(input), extra)
}

func fromValidator(err error, extra []FieldError) error {
	fields := make([]FieldError, 0, len(extra))
	if err != nil {
		var vErrs validator.ValidationErrors
		if !errors.As(err, &vErrs) {
			return &ValidationError{Fields: []FieldError{{Field: "request", Code: "invalid_request", Message: err.Error()}}}
		}
		for _, fe := range vErrs {
			fields = append(fields, FieldError{
				Field:   fe.Field(),
				Code:    fe.Tag(),
				Message: fieldMessage(fe),
			})
		}
	}
	fields = append(fields, extra...)
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "invalid email format"
	case "oneof":
		return fe.Field() + " must be one of " + fe.Param()
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	default:
		return "invalid " + fe.Field()
	}
}
