package priceapi

import (
	"time"

	"github.com/go-playground/validator/v10"

	"brent-dashboard-api/internal/models"
)

// NewValidator returns a validator that understands the datekey tag.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("datekey", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(models.DateKeyLayout, fl.Field().String())
		return err == nil
	})
	return v
}
