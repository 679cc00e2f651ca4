package framework

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/goccy/go-json"
	"gopkg.in/go-playground/validator.v9"
	entranslations "gopkg.in/go-playground/validator.v9/translations/en"
)

// validate holds the settings and caches for validating request payloads.
var validate *validator.Validate

// translator is a cache of locale and translation information.
var translator *ut.UniversalTranslator

func init() {
	validate = validator.New()

	// english is the fallback locale for validation error messages
	enLocale := en.New()
	translator = ut.New(enLocale, enLocale)
	lang, _ := translator.GetTranslator("en")
	_ = entranslations.RegisterDefaultTranslations(validate, lang)

	// use JSON tag names for errors instead of Go struct field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Decode reads an HTTP request body looking for a JSON document and decodes
// it into the value provided. Unknown fields are tolerated; callers submit
// whatever their tooling produces and the domain validation decides what
// matters. The provided value is checked for validation tags if it's a
// struct.
func Decode(r *http.Request, val any) error {
	if err := json.NewDecoder(r.Body).Decode(val); err != nil {
		return NewRequestError(err, http.StatusBadRequest)
	}
	return ValidateRequest(val)
}

// ValidateRequest runs tag validation on a decoded request value, translating
// any failures into a SafeError with per-field messages.
func ValidateRequest(val any) error {
	if err := validate.Struct(val); err != nil {
		var vErrors validator.ValidationErrors
		if !errors.As(err, &vErrors) {
			return err
		}

		lang, _ := translator.GetTranslator("en")
		fieldErrors := make([]FieldError, 0, len(vErrors))
		for _, vError := range vErrors {
			fieldErrors = append(fieldErrors, FieldError{
				Field: vError.Field(),
				Error: vError.Translate(lang),
			})
		}
		return &SafeError{
			Err:        errors.New("field validation error"),
			StatusCode: http.StatusBadRequest,
			Fields:     fieldErrors,
		}
	}
	return nil
}
