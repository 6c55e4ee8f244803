package entity

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"

	"tuition-pricing-service/internal/apperror"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	// custom validation texts
	requiredText = "{0} is required"
	uniqueText   = "{0} must not contain duplicates"
)

// Instantiate the validator for use.
func init() {
	Validate = validator.New()

	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Use JSON tag names for errors instead of Go struct names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	RegisterCustomTranslation("required", requiredText, true)
	RegisterCustomTranslation("unique", uniqueText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = Validate.RegisterTranslation(
		tag, Translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Validate normalizes the request in place and checks it.
// Sibling ids are trimmed and deduplicated keeping first-seen order.
func (r *PricingRequest) Validate() error {
	r.StudentID = strings.TrimSpace(r.StudentID)
	r.ClassID = strings.TrimSpace(r.ClassID)
	if r.SubjectIDs != nil {
		subjects := make([]string, len(r.SubjectIDs))
		for i, id := range r.SubjectIDs {
			subjects[i] = strings.TrimSpace(id)
		}
		r.SubjectIDs = subjects
	}
	r.SiblingIDs = dedupe(r.SiblingIDs)

	if err := Validate.Struct(r); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			return toValidationError(vErrs)
		}
		return apperror.NewValidationError(err.Error())
	}

	for _, id := range r.SiblingIDs {
		if id == r.StudentID {
			return apperror.NewValidationError("invalid pricing request", apperror.FieldError{
				Field: "siblingIds",
				Error: "a student cannot be their own sibling",
			})
		}
	}
	return nil
}

func toValidationError(vErrs validator.ValidationErrors) error {
	flds := make([]apperror.FieldError, 0, len(vErrs))
	for _, vErr := range vErrs {
		flds = append(flds, apperror.FieldError{
			Field: vErr.Field(),
			Error: vErr.Translate(Translator),
		})
	}
	return apperror.NewValidationError("invalid pricing request", flds...)
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
