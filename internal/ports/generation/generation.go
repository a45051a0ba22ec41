package generation

import "context"

// Media es un adjunto binario (p.ej. la imagen de text-from-image).
type Media struct {
	MIMEType string
	Data     []byte
}

// Request es una llamada al servicio de generación. Schema es un JSON Schema
// (map) que describe la respuesta esperada; si es nil se pide texto libre.
type Request struct {
	Flow   string
	System string
	Prompt string
	Schema map[string]any
	Media  []Media
}

// Generator es el colaborador externo de generación de texto. Una llamada por
// request, sin reintentos implícitos.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapta una función a Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
