package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	apperrors "coupon-scheduler/pkg/errors"

	"github.com/go-playground/validator/v10"
)

// TagName is the struct tag the request types declare their rules in. It is
// gin's binding tag so the same rules run on both sides of the API.
const TagName = "binding"

var (
	validate *validator.Validate
	once     sync.Once
)

// Get returns the shared validator reading TagName rules.
func Get() *validator.Validate {
	once.Do(initValidator)
	return validate
}

func initValidator() {
	validate = validator.New()
	validate.SetTagName(TagName)
	Configure(validate)
}

// Configure makes v report fields by their JSON names.
func Configure(v *validator.Validate) {
	v.RegisterTagNameFunc(JSONName)
}

// JSONName returns the JSON key of a struct field, or the Go name when the
// field has no json tag.
func JSONName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// Struct validates s with the shared validator and returns the violations
// as a *errors.ValidationError.
func Struct(s any) error {
	if err := Get().Struct(s); err != nil {
		return ToValidationError(err)
	}
	return nil
}

// ToValidationError converts validator errors into field errors. Other
// errors are returned unchanged.
func ToValidationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	fe := apperrors.FieldErrors{}
	for _, e := range ve {
		fe.Add(e.Field(), prettyError(e))
	}
	return fe.Err()
}

func prettyError(e validator.FieldError) string {
	field := strings.ReplaceAll(e.Field(), "_", " ")
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "url":
		return field + " must be a valid URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, strings.ReplaceAll(e.Param(), " ", ", "))
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	default:
		return e.Error()
	}
}
