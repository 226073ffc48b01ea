package auth

import (
	"fmt"

	"mitm-lab/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type RegisterRequest struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// ValidateRegister rejects registrations with an empty username or password.
// No complexity rules: the lab reproduces the source system's behavior where
// any non-empty password is accepted.
func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMissingCredentials, err)
	}
	return nil
}
