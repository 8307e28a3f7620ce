package drafting

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/martinemde/lexdraft/unifiedllm"
)

// FieldError identifies the input field that failed validation.
type FieldError struct {
	Field      string // JSON name, e.g. "party_a"
	Constraint string // failed rule, e.g. "notblank"
}

func (e *FieldError) Error() string {
	return e.Field + " failed " + e.Constraint
}

var fieldMessages = map[string]string{
	"DocumentType":      "Invalid document type. Please select a valid document type.",
	"PartyA":            "Party A information is required.",
	"PartyB":            "Party B information is required.",
	"AdditionalDetails": "Additional details must be more descriptive (at least 10 characters).",
	"SpecificDetails":   "Specific details must be more descriptive (at least 10 characters).",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("doctype", func(fl validator.FieldLevel) bool {
		return IsValidDocumentType(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate checks req before any remote call. Checks run in field order and
// the first failure is reported as a VALIDATION_ERROR whose cause is a
// *FieldError.
func Validate(req DraftRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return unifiedllm.NewError(unifiedllm.KindValidation, err.Error(), err)
	}
	fe := verrs[0]
	msg, ok := fieldMessages[fe.StructField()]
	if !ok {
		msg = "Invalid " + fe.Field() + "."
	}
	return unifiedllm.NewError(unifiedllm.KindValidation, msg, &FieldError{
		Field:      fe.Field(),
		Constraint: fe.Tag(),
	})
}
