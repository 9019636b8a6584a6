package grade

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
)

var (
	semesterTag  = "semester"
	semesterText = "{0} must look like 2024-2025-1"
)

// RegisterValidators registers the grade specific validation tags.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(semesterTag, semesterValidation)
	core.RegisterCustomTranslation(validate, translator, semesterTag, semesterText)
}

// NewValidator returns a validator knowing the core and grade tags.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	RegisterValidators(validate, translator)
	return validate, translator
}

func semesterValidation(fl validator.FieldLevel) bool {
	_, err := ParseSemester(fl.Field().String())
	return err == nil
}
