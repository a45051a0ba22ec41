// Package apperr define la taxonomía de errores compartida por los módulos y su
// traducción a HTTP.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError: el input no pasa el esquema antes de cualquier llamada externa.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// PersistenceError: falla de lectura/escritura/borrado en el store autoritativo.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// InvalidInputError: el request de un flow no cumple su contrato.
type InvalidInputError struct {
	Flow   string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input for %s: %s", e.Flow, e.Reason)
}

// OutputValidationError: la respuesta del modelo no cumple el esquema declarado.
type OutputValidationError struct {
	Flow   string
	Reason string
}

func (e *OutputValidationError) Error() string {
	return fmt.Sprintf("invalid output from %s: %s", e.Flow, e.Reason)
}

// AuthenticationError: se requiere sesión y no hay.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	if e.Reason == "" {
		return "unauthenticated"
	}
	return "unauthenticated: " + e.Reason
}

// UpstreamError: falla de transporte con un colaborador externo (modelo, pagos).
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream error: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func Persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var t *ValidationError
	return errors.As(err, &t)
}

func IsPersistence(err error) bool {
	var t *PersistenceError
	return errors.As(err, &t)
}

func IsInvalidInput(err error) bool {
	var t *InvalidInputError
	return errors.As(err, &t)
}

func IsOutputValidation(err error) bool {
	var t *OutputValidationError
	return errors.As(err, &t)
}

func IsAuthentication(err error) bool {
	var t *AuthenticationError
	return errors.As(err, &t)
}

// HTTPStatus traduce la taxonomía a status HTTP. Errores desconocidos => 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidation(err), IsInvalidInput(err):
		return http.StatusBadRequest
	case IsAuthentication(err):
		return http.StatusUnauthorized
	case IsOutputValidation(err):
		return http.StatusBadGateway
	case IsPersistence(err):
		return http.StatusServiceUnavailable
	}
	var up *UpstreamError
	if errors.As(err, &up) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Envelope es la forma uniforme de falla que ven los clientes.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func Failure(err error) Envelope {
	if err == nil {
		return Envelope{Success: false, Error: "unknown error"}
	}
	return Envelope{Success: false, Error: err.Error()}
}
