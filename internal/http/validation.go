package http

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/choplife/choplifeib/internal/entities"
)

// custom validation tags
const (
	placeCategoryTag = "place_category"
	eventCategoryTag = "event_category"
	roleTag          = "role"
	ratingTag        = "rating"
	listingTypeTag   = "listing_type"
)

var (
	registerOnce sync.Once
	translator   ut.Translator
)

// RegisterValidators installs the domain validators on gin's binding engine.
// Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		english := en.New()
		uni := ut.New(english, english)
		translator, _ = uni.GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(v, translator)

		// report form/json names instead of Go field names
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"form", "json"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})

		_ = v.RegisterValidation(placeCategoryTag, func(fl validator.FieldLevel) bool {
			return entities.PlaceCategory(fl.Field().String()).IsValid()
		})
		_ = v.RegisterValidation(eventCategoryTag, func(fl validator.FieldLevel) bool {
			return entities.EventCategory(fl.Field().String()).IsValid()
		})
		_ = v.RegisterValidation(roleTag, func(fl validator.FieldLevel) bool {
			return entities.UserRole(fl.Field().String()).IsValid()
		})
		_ = v.RegisterValidation(ratingTag, func(fl validator.FieldLevel) bool {
			n := fl.Field().Int()
			return n >= entities.MinRating && n <= entities.MaxRating
		})
		_ = v.RegisterValidation(listingTypeTag, func(fl validator.FieldLevel) bool {
			_, err := entities.ParseListingType(fl.Field().String())
			return err == nil
		})

		messages := map[string]string{
			placeCategoryTag: "{0} is not a known place category",
			eventCategoryTag: "{0} is not a known event category",
			roleTag:          "{0} must be admin, verified_reviewer or user",
			ratingTag:        "{0} must be between 1 and 5",
			listingTypeTag:   "{0} must be place or event",
		}
		for tag, text := range messages {
			tag, text := tag, text
			_ = v.RegisterTranslation(tag, translator,
				func(t ut.Translator) error { return t.Add(tag, text, true) },
				func(t ut.Translator, fe validator.FieldError) string {
					msg, _ := t.T(fe.Tag(), fe.Field())
					return msg
				})
		}
	})
}

// validationDetails maps field names to readable messages. Errors that are
// not validation errors (malformed JSON, bad numbers) come back under "_".
func validationDetails(err error) map[string]string {
	details := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		details["_"] = err.Error()
		return details
	}
	for _, fe := range verrs {
		if translator != nil {
			details[fe.Field()] = fe.Translate(translator)
		} else {
			details[fe.Field()] = fe.Error()
		}
	}
	return details
}

// firstValidationMessage is used on HTML forms that show a single banner.
func firstValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if translator != nil {
			return capitalize(verrs[0].Translate(translator))
		}
		return verrs[0].Error()
	}
	return "Please check the form and try again."
}
