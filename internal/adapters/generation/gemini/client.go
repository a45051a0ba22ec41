package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pet-wellness/internal/ports/generation"

	"google.golang.org/genai"
)

var (
	ErrGeminiNotConfigured = errors.New("gemini client not configured")
	ErrEmptyResponse       = errors.New("gemini returned no text")
)

const DefaultModel = "gemini-2.5-flash"

type Config struct {
	APIKey string
	Model  string

	// Temperature <= 0 => default del modelo.
	Temperature float32
}

// Client implementa generation.Generator usando la API de Gemini.
type Client struct {
	client      *genai.Client
	model       string
	temperature *float32
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrGeminiNotConfigured
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	c := &Client{client: client, model: model}
	if cfg.Temperature > 0 {
		c.temperature = genai.Ptr(cfg.Temperature)
	}
	return c, nil
}

func (c *Client) Model() string { return c.model }

// Generate hace exactamente una llamada a GenerateContent. Si req.Schema viene,
// se pide JSON validado por el modelo contra ese schema.
func (c *Client) Generate(ctx context.Context, req generation.Request) (string, error) {
	if c == nil || c.client == nil {
		return "", ErrGeminiNotConfigured
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	for _, m := range req.Media {
		if len(m.Data) == 0 {
			continue
		}
		parts = append(parts, genai.NewPartFromBytes(m.Data, m.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{
		Temperature: c.temperature,
	}
	if strings.TrimSpace(req.System) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseJsonSchema = req.Schema
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate (%s): %w", req.Flow, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
