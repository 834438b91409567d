package dto

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Slug alphabet matches the reference-data identifiers the importer and the
// admin surface agree on.
var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// RegisterValidators installs custom binding rules on gin's validator engine.
// Call once at startup before serving.
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return slugPattern.MatchString(fl.Field().String())
		})
	}
}
