package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

type Payload interface {
	Validate() error
}

type AddToCartPayload struct {
	ItemID int `validate:"required,min=1"`
}

type SearchPayload struct {
	Query string `validate:"max=100"`
	Scope string `validate:"required,oneof=home menu"`
}

type CategoryPayload struct {
	Category string `validate:"max=32"`
}

func (ad *AddToCartPayload) Validate() error {
	return validate.Struct(ad)
}

func (sp *SearchPayload) Validate() error {
	return validate.Struct(sp)
}

func (cp *CategoryPayload) Validate() error {
	return validate.Struct(cp)
}

// ValidationErrorResponse flattens field errors into one message.
func ValidationErrorResponse(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.New("invalid validation error format")
	}
	var msg string
	for _, err := range validationErrs {
		msg += fmt.Sprintf("Field '%s' is invalid: %s\n", err.Field(), err.Tag())
	}
	return errors.New(msg)
}
