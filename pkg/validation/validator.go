package validation

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Init configures the validator behind gin binding: JSON field names in
// errors plus a few alias tags used by request structs.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		Register(v)
	}
}

// Register applies the tag name func and aliases to v.
func Register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterAlias("username", "min=1,max=64,printascii")
	v.RegisterAlias("pwd", "min=1,max=128")
	v.RegisterAlias("code", "min=1,max=32,alphanum")
	v.RegisterAlias("phone", "max=32,printascii")
}

// ToDetails converts binding errors into a map[field]message for error details.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return map[string]string{"payload": "invalid json"}
	}
	if errors.As(err, &ute) {
		field := ute.Field
		if field == "" {
			field = "payload"
		}
		return map[string]string{field: "must be a " + ute.Type.String()}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = formatFieldError(fe)
		}
		return out
	}

	return map[string]string{"payload": "invalid payload"}
}

func formatFieldError(fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return "is required when " + param + " is not present"
	case "email":
		return "must be a valid email"
	case "e164":
		return "must be a valid E.164 phone number"
	case "alphanum":
		return "must contain only letters and digits"
	case "printascii":
		return "must contain only printable ASCII characters"
	case "oneof":
		return "must be one of: " + param
	case "min":
		if isLengthKind(fe.Kind()) {
			return "must be at least " + param + " characters long"
		}
		return "must be at least " + param
	case "max":
		if isLengthKind(fe.Kind()) {
			return "must be at most " + param + " characters long"
		}
		return "must be at most " + param
	case "gte":
		return "must be greater than or equal to " + param
	case "lte":
		return "must be less than or equal to " + param
	case "dive":
		return "has an invalid element"
	case "username", "pwd", "code", "phone":
		return "is invalid"
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}

func isLengthKind(k reflect.Kind) bool {
	switch k {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return true
	}
	return false
}
