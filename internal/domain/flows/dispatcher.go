// Package flows implementa los prompt-flows: input tipado -> prompt -> una
// llamada al modelo -> output tipado y validado.
package flows

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"pet-wellness/internal/platform/apperr"
	"pet-wellness/internal/platform/logger"
	"pet-wellness/internal/ports/generation"
)

// Flow describe un prompt-flow. Validate corre antes de cualquier llamada
// externa; Render es pura; Check valida (y puede normalizar) la salida.
type Flow[In, Out any] struct {
	Name   string
	System string
	Schema map[string]any

	Validate func(in In) error
	Render   func(in In) (string, error)
	Media    func(in In) []generation.Media
	Check    func(in In, out *Out) error
}

// Result es el envelope que ve el cliente. Nunca lleva datos parciales.
type Result[Out any] struct {
	Success bool   `json:"success"`
	Data    *Out   `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`

	err error
}

// Err devuelve el error tipado detrás de una falla (nil si Success).
func (r Result[Out]) Err() error { return r.err }

func failure[Out any](err error) Result[Out] {
	return Result[Out]{Success: false, Error: err.Error(), err: err}
}

type Dispatcher struct {
	gen generation.Generator
	log logger.Logger
	now func() time.Time
}

func NewDispatcher(gen generation.Generator, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewNop()
	}
	return &Dispatcher{
		gen: gen,
		log: log.With(map[string]any{"component": "flows"}),
		now: time.Now,
	}
}

var ErrGeneratorMissing = errors.New("generation service not configured")

// Run ejecuta un flow. Exactamente una llamada a Generate, sin reintentos ni
// timeout propio: el ctx del caller manda.
func Run[In, Out any](ctx context.Context, d *Dispatcher, f Flow[In, Out], in In) Result[Out] {
	start := d.now()
	res := run(ctx, d, f, in)

	fields := map[string]any{
		"flow":        f.Name,
		"success":     res.Success,
		"duration_ms": d.now().Sub(start).Milliseconds(),
	}
	if res.err != nil {
		fields["error"] = res.err
		d.log.Warn("flow failed", fields)
	} else {
		d.log.Debug("flow completed", fields)
	}
	return res
}

func run[In, Out any](ctx context.Context, d *Dispatcher, f Flow[In, Out], in In) Result[Out] {
	if f.Validate != nil {
		if err := f.Validate(in); err != nil {
			return failure[Out](asInvalidInput(f.Name, err))
		}
	}

	prompt, err := f.Render(in)
	if err != nil {
		return failure[Out](fmt.Errorf("render %s: %w", f.Name, err))
	}

	req := generation.Request{
		Flow:   f.Name,
		System: f.System,
		Prompt: prompt,
		Schema: f.Schema,
	}
	if f.Media != nil {
		req.Media = f.Media(in)
	}

	if d.gen == nil {
		return failure[Out](&apperr.UpstreamError{Service: "generation", Err: ErrGeneratorMissing})
	}
	raw, err := d.gen.Generate(ctx, req)
	if err != nil {
		return failure[Out](&apperr.UpstreamError{Service: "generation", Err: err})
	}

	body := []byte(stripFences(raw))
	if err := checkRequired(f.Schema, body); err != nil {
		return failure[Out](&apperr.OutputValidationError{Flow: f.Name, Reason: err.Error()})
	}

	var out Out
	if err := json.Unmarshal(body, &out); err != nil {
		return failure[Out](&apperr.OutputValidationError{Flow: f.Name, Reason: "response is not valid JSON for the declared schema"})
	}

	if f.Check != nil {
		if err := f.Check(in, &out); err != nil {
			return failure[Out](asOutputValidation(f.Name, err))
		}
	}

	return Result[Out]{Success: true, Data: &out}
}

// checkRequired exige que el objeto raíz traiga cada clave listada en
// "required" del schema, y que no venga en null.
func checkRequired(schema map[string]any, body []byte) error {
	required, _ := schema["required"].([]string)
	if len(required) == 0 {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return errors.New("response is not a JSON object")
	}
	for _, k := range required {
		v, ok := obj[k]
		if !ok || string(bytes.TrimSpace(v)) == "null" {
			return fmt.Errorf("%s is missing", k)
		}
	}
	return nil
}

// stripFences quita el ```json ... ``` que algunos modelos agregan aunque se
// pida JSON puro.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func asInvalidInput(flow string, err error) error {
	var t *apperr.InvalidInputError
	if errors.As(err, &t) {
		return err
	}
	return &apperr.InvalidInputError{Flow: flow, Reason: err.Error()}
}

func asOutputValidation(flow string, err error) error {
	var t *apperr.OutputValidationError
	if errors.As(err, &t) {
		return err
	}
	return &apperr.OutputValidationError{Flow: flow, Reason: err.Error()}
}
