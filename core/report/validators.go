package report

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/edusync/edusync/core"
)

var (
	decisionTag  = "decision"
	decisionText = "must be one of: promotion, retention, reorientation, exclusion, pending"

	stateTag  = "reportstate"
	stateText = "must be one of: draft, calculated, validated, published, archived"
)

// RegisterValidators adds the report package's custom validation tags.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(decisionTag, decisionValidation)
	core.RegisterCustomTranslation(validate, translator, decisionTag, decisionText)

	_ = validate.RegisterValidation(stateTag, stateValidation)
	core.RegisterCustomTranslation(validate, translator, stateTag, stateText)
}

func decisionValidation(fl validator.FieldLevel) bool {
	return Decision(fl.Field().String()).IsValid()
}

func stateValidation(fl validator.FieldLevel) bool {
	return State(fl.Field().String()).IsValid()
}
