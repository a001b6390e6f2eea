package utils

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xelth-com/cspsgo/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON field names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// ValidateStruct checks `validate` tags and returns a validation error
// listing every failing field as "field: rule"
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperr.Validation("invalid input: %v", err)
	}

	fields := make([]string, 0, len(validationErrors))
	for _, ve := range validationErrors {
		rule := ve.Tag()
		if ve.Param() != "" {
			rule = fmt.Sprintf("%s=%s", rule, ve.Param())
		}
		fields = append(fields, fmt.Sprintf("%s: %s", ve.Field(), rule))
	}
	sort.Strings(fields)
	return apperr.Validation("invalid input (%s)", strings.Join(fields, ", "))
}
