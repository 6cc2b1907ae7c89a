// Package validator registers project-specific binding tags on gin's validator.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/hackhub-cms/backend/internal/models"
)

var (
	slugRegex  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9 ()\-]{6,20}$`)
)

// New returns a validator with the custom tags registered.
func New() *validator.Validate {
	v := validator.New()
	register(v)
	return v
}

// RegisterGin adds the custom tags to gin's default binding validator.
func RegisterGin() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		register(v)
	}
}

func register(v *validator.Validate) {
	_ = v.RegisterValidation("slug", validateSlug)
	_ = v.RegisterValidation("phone", validatePhone)
	_ = v.RegisterValidation("regstatus", validateRegStatus)
	_ = v.RegisterValidation("eventstatus", validateEventStatus)
}

func validateSlug(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || slugRegex.MatchString(s)
}

func validatePhone(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || phoneRegex.MatchString(s)
}

func validateRegStatus(fl validator.FieldLevel) bool {
	return models.RegistrationStatus(fl.Field().String()).Valid()
}

func validateEventStatus(fl validator.FieldLevel) bool {
	return models.HackathonStatus(fl.Field().String()).Valid()
}
