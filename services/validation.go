package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kendall-kelly/powder-coating-api/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	custom := map[string]validator.Func{
		// free-form color names are fine, but anything starting with # must be a hex color
		"coatingcolor": func(fl validator.FieldLevel) bool {
			color := fl.Field().String()
			return !strings.HasPrefix(color, "#") || v.Var(color, "hexcolor") == nil
		},
		"orderstatus": func(fl validator.FieldLevel) bool {
			return models.OrderStatus(fl.Field().String()).Valid()
		},
		"priority": func(fl validator.FieldLevel) bool {
			return models.Priority(fl.Field().String()).Valid()
		},
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}
	return v
}

// fieldRule is the error reported for a failed field check
type fieldRule struct {
	code    string
	message string
}

// fieldRules maps "Field" or "Field.tag" to the error reported for it
type fieldRules map[string]fieldRule

// checkStruct runs the validate tags of in and reports the first failure
// as a ValidationError.
func checkStruct(in any, rules fieldRules) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	if r, ok := rules[fe.StructField()+"."+fe.Tag()]; ok {
		return invalid(r.code, r.message)
	}
	if r, ok := rules[fe.StructField()]; ok {
		return invalid(r.code, r.message)
	}
	return invalid("VALIDATION_ERROR", fmt.Sprintf("%s failed the %q check", fe.StructField(), fe.Tag()))
}
