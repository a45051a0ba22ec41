// Package respond junta los helpers de respuesta HTTP que antes estaban
// duplicados en cada handler de módulo.
package respond

import (
	"encoding/json"
	"net/http"

	"pet-wellness/internal/platform/apperr"
)

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error escribe el envelope {success:false, error} con el status que
// corresponde a la taxonomía de apperr.
func Error(w http.ResponseWriter, err error) {
	JSON(w, apperr.HTTPStatus(err), apperr.Failure(err))
}

// Fail escribe el envelope con un status explícito.
func Fail(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, apperr.Envelope{Success: false, Error: msg})
}

func Unauthorized(w http.ResponseWriter) {
	Fail(w, http.StatusUnauthorized, "unauthorized")
}

// DecodeJSON lee el body en v. Body vacío => v queda en su zero value.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("", "invalid json")
	}
	return nil
}
