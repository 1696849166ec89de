// Package validation holds the standalone per-entity validators. Each one
// returns nil or a *ValidationError listing every offending field.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/RubachokBoss/classroom-assignments/internal/models"
)

var (
	Validate   = validator.New()
	Translator ut.Translator

	// custom validation tags & texts
	requiredTag  = "required"
	requiredText = "this field is required"

	notBlankTag = "notblank"

	marksTag  = "marks_lte_total"
	marksText = "marks cannot exceed total marks"

	unknownQuestionText   = "question does not belong to this assignment"
	duplicateAnswerText   = "question answered more than once"
	duplicateQuestionText = "duplicate question id"
)

func init() {
	enLocale := en.New()
	Translator, _ = ut.New(enLocale, enLocale).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Use JSON tag names for errors instead of Go struct names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// A zero Date validates like an empty string.
	Validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
		if d, ok := v.Interface().(models.Date); ok {
			return d.String()
		}
		return nil
	}, models.Date{})

	_ = Validate.RegisterValidation(notBlankTag, notBlankValidation)
	Validate.RegisterStructValidation(reviewStructValidation, models.ReviewRequest{})

	RegisterCustomTranslation(requiredTag, requiredText, true)
	RegisterCustomTranslation(notBlankTag, requiredText)
	RegisterCustomTranslation(marksTag, marksText)
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

// notBlankValidation rejects strings made only of whitespace.
func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func reviewStructValidation(sl validator.StructLevel) {
	req := sl.Current().Interface().(models.ReviewRequest)
	if req.TotalMarks == nil || req.MarksObtained == nil {
		return
	}
	if *req.MarksObtained > *req.TotalMarks {
		sl.ReportError(req.MarksObtained, "marksObtained", "MarksObtained", marksTag, "")
	}
}

// Struct validates v and converts validator errors into a *ValidationError.
func Struct(v interface{}) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return err
	}
	fields := make([]FieldError, 0, len(vErrs))
	for _, fe := range vErrs {
		fields = append(fields, FieldError{
			Field: fieldPath(fe.Namespace()),
			Error: fe.Translate(Translator),
		})
	}
	return &ValidationError{Fields: fields}
}

// fieldPath drops the struct name from a validator namespace:
// "AssignmentRequest.questions[0].question" -> "questions[0].question".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
