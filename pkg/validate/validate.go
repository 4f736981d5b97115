// Package validate, go-playground/validator'ı sınır noktalarında (WS
// payload'ları, HTTP body'leri) tek bir şekilde kullanmak için sarar.
//
// Hatalar pkg.ErrBadRequest ile wrap edilir; alan adları JSON tag'inden gelir.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/akinalp/voxgate/pkg"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return val
}

// Struct, struct tag'lerine göre doğrular.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, fieldError(fe))
		}
		return fmt.Errorf("%w: %s", pkg.ErrBadRequest, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
}

// fieldError, tek bir FieldError'ı okunabilir mesaja çevirir.
func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must have at least %s item(s)/character(s)", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must have at most %s item(s)/character(s)", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
