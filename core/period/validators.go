package period

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/edusync/edusync/core"
)

var (
	levelTag  = "educationlevel"
	levelText = "must be one of: preschool, primary, middle_school, high_school"
)

// RegisterValidators adds the period package's custom validation tags.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(levelTag, levelValidation)
	core.RegisterCustomTranslation(validate, translator, levelTag, levelText)
}

func levelValidation(fl validator.FieldLevel) bool {
	level := fl.Field().String()
	for _, l := range Levels {
		if level == l {
			return true
		}
	}
	return false
}
