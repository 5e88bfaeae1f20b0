// Package validation wires go-playground/validator into Echo so
// handlers can call c.Validate on bound request bodies.
package validation

import (
    "github.com/go-playground/validator/v10"
)

// Validator adapts a validator.Validate instance to Echo's Validator
// interface.
type Validator struct {
    v *validator.Validate
}

// New returns a ready-to-use Validator.
func New() *Validator {
    return &Validator{v: validator.New()}
}

// Validate checks struct tags on i and returns the first violation.
func (v *Validator) Validate(i interface{}) error {
    return v.v.Struct(i)
}
