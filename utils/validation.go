package utils

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// report fields by their wire name when one exists
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// event timestamps are RFC 3339, fractional seconds allowed
	_ = v.RegisterValidation("rfc3339", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(time.RFC3339Nano, fl.Field().String())
		return err == nil
	})

	return v
}

// fieldMessages renders one validator tag; %[1]s is the field, %[2]s the tag parameter
var fieldMessages = map[string]string{
	"required":    "%[1]s is required",
	"len":         "%[1]s must be exactly %[2]s characters",
	"hexadecimal": "%[1]s must be hexadecimal",
	"gte":         "%[1]s must be greater than or equal to %[2]s",
	"lte":         "%[1]s must be less than or equal to %[2]s",
	"min":         "%[1]s must contain at least %[2]s items",
	"max":         "%[1]s must contain at most %[2]s items",
	"oneof":       "%[1]s must be one of: %[2]s",
	"rfc3339":     "%[1]s must be an RFC 3339 timestamp",
	"required_if": "%[1]s is required when %[2]s",
	"excluded_if": "%[1]s must be absent when %[2]s",
}

// conditionText renders a "Field value [Field value...]" tag parameter as
// "field is value and ...".
func conditionText(param string) string {
	parts := strings.Fields(param)
	conds := make([]string, 0, len(parts)/2)
	for i := 0; i+1 < len(parts); i += 2 {
		conds = append(conds, strings.ToLower(parts[i])+" is "+parts[i+1])
	}
	return strings.Join(conds, " and ")
}

// ValidateStruct validates s against its validate tags. Tag failures are
// returned as a *ValidationError keyed by wire field path.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return NewValidationError(fieldErrs)
	}
	return err
}

// ValidationError carries one message per failing field
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(keys, ", "))
}

// NewValidationError converts validator output into a ValidationError.
// Field paths drop the root struct name, e.g. "tags.tenant_id" or "events[1].model".
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}

		tmpl, ok := fieldMessages[fe.Tag()]
		if !ok {
			fields[field] = fmt.Sprintf("%s validation failed on '%s' tag", field, fe.Tag())
			continue
		}
		param := fe.Param()
		if strings.HasSuffix(fe.Tag(), "_if") {
			param = conditionText(param)
		}
		fields[field] = fmt.Sprintf(tmpl, field, param)
	}

	return &ValidationError{
		Message: "Validation failed",
		Fields:  fields,
	}
}

// IsValidationError reports whether err wraps a *ValidationError
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// GetValidationFields returns the per-field messages of a *ValidationError, or nil
func GetValidationFields(err error) map[string]string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Fields
	}
	return nil
}
