// Package validation holds the per-entity form schemas checked before any
// mutating call reaches the API. It is a shape check only; the API remains
// the authority on what it accepts.
package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	appErrors "github.com/noah-isme/academy-admin/pkg/errors"
)

// Messager lets a form override the message shown for "field.tag" failures.
type Messager interface {
	FieldMessages() map[string]string
}

// Validator evaluates form schemas and renders admin-facing messages.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New builds a Validator with English fallbacks and the form schemas registered.
func New() *Validator {
	validate := validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report view-model names, the same keys the forms post.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		}
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomTranslation(validate, translator, "required_if", "{0} is required")
	validate.RegisterStructValidation(itemStructLevel, ItemForm{})

	return &Validator{validate: validate, translator: translator}
}

// Engine exposes the underlying validator for services that validate ad-hoc structs.
func (v *Validator) Engine() *validator.Validate {
	return v.validate
}

// Check validates form and returns a VALIDATION_ERROR carrying one message per
// failing field, or nil.
func (v *Validator) Check(form interface{}) error {
	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, appErrors.ErrValidation.Message)
	}

	var overrides map[string]string
	if m, ok := form.(Messager); ok {
		overrides = m.FieldMessages()
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		name := fe.Field()
		if _, seen := fields[name]; seen {
			continue
		}
		if msg, ok := overrides[name+"."+fe.Tag()]; ok {
			fields[name] = msg
			continue
		}
		fields[name] = fe.Translate(v.translator)
	}
	return appErrors.WithFields(fields)
}

func registerCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}
