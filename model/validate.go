package model

import (
	"github.com/sahilchouksey/byteboost-api/utils/validation"
)

var entityValidator = validation.NewValidator()

// Validate checks an entity's field rules and returns an *apperr.ValidationError on the first violation
func Validate(entity string, v interface{}) error {
	return entityValidator.ValidateEntity(entity, v)
}
