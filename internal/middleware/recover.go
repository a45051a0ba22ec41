package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"pet-wellness/internal/platform/apperr"
	"pet-wellness/internal/platform/logger"
	"pet-wellness/internal/platform/respond"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Recover reemplaza a chi/middleware.Recoverer: loguea el panic con el request
// id y responde con el envelope estándar.
func Recover(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				log.Error("panic recovered", map[string]any{
					"request_id": chimw.GetReqID(r.Context()),
					"method":     r.Method,
					"path":       r.URL.Path,
					"panic":      fmt.Sprint(rec),
					"stack":      string(debug.Stack()),
				})
				respond.JSON(w, http.StatusInternalServerError, apperr.Envelope{Success: false, Error: "internal error"})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
