package domain

import (
	"errors"
	"strings"
)

// FieldBase marks errors that belong to the request as a whole.
const FieldBase = "base"

var (
	ErrNotFound           = errors.New("not_found")
	ErrInvalidPartner     = errors.New("invalid_partner")
	ErrInvalidPartnerUser = errors.New("invalid_partner_user")
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects business-rule violations found while building a request.
type ValidationErrors struct {
	Errors []ValidationError
}

func (e *ValidationErrors) Error() string {
	return strings.Join(e.Messages(), "; ")
}

func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, ValidationError{Field: field, Message: message})
}

// AddOnce adds the error unless an identical one is already present.
func (e *ValidationErrors) AddOnce(field, message string) {
	for _, existing := range e.Errors {
		if existing.Field == field && existing.Message == message {
			return
		}
	}
	e.Add(field, message)
}

func (e *ValidationErrors) Empty() bool {
	return e == nil || len(e.Errors) == 0
}

func (e *ValidationErrors) Messages() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		out = append(out, err.Message)
	}
	return out
}

// Err returns e as an error, or nil when nothing was collected.
func (e *ValidationErrors) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

// AsValidationErrors unwraps err into *ValidationErrors.
func AsValidationErrors(err error) (*ValidationErrors, bool) {
	var verrs *ValidationErrors
	if errors.As(err, &verrs) {
		return verrs, true
	}
	return nil, false
}
