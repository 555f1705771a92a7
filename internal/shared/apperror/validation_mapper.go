package apperror

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ErrMalformedBody = New(CodeInvalidInput, "Request body is not valid JSON", http.StatusBadRequest)

// Init makes gin's validator report json field names instead of Go field names.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// formatFieldName turns a json field name into a label: start_date -> Start Date.
func formatFieldName(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	caser := cases.Title(language.English)
	return caser.String(s)
}

// MapValidationError converts a binding failure into an AppError naming the
// first offending field.
func MapValidationError(err error) error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		// Field() is the json name once Init has registered the tag name func.
		e := errs[0]
		label := formatFieldName(e.Field())

		switch e.Tag() {
		case "required":
			return WithField(e.Field(), RequiredField(label))
		default:
			return WithField(e.Field(), InvalidField(label))
		}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return WithField(typeErr.Field, InvalidField(formatFieldName(typeErr.Field)))
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return ErrMalformedBody
	}

	return ErrInvalidInput
}
