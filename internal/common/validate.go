package common

import (
	"errors"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/gst-invoice/internal/gst"
)

// NewValidator returns a validator that reports JSON field names, compares
// decimal.Decimal fields numerically and understands the `gstin` tag.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("gstin", func(fl validator.FieldLevel) bool {
		return gst.ValidGSTIN(fl.Field().String())
	})
	_ = v.RegisterValidation("statecode", func(fl validator.FieldLevel) bool {
		return gst.ValidStateCode(fl.Field().String())
	})
	return v
}

// ValidateStruct runs v against input and converts failures into a
// VALIDATION_ERROR with one message per field.
func ValidateStruct(v *validator.Validate, input any) error {
	err := v.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ValidationError("invalid input", map[string]string{"input": err.Error()})
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fieldMessage(fe)
	}
	return ValidationError("invalid input", details)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "gstin":
		return "must be a valid GSTIN"
	case "statecode":
		return "must be a GST state code"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
