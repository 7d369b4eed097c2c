package perception

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient is the cloud provider, backed by the Google GenAI SDK.
// It uses native constrained decoding when a response schema is supplied.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini provider.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Name() string { return "gemini" }

// Generate sends one prompt. Schema requests switch the response MIME type
// to application/json with the translated genai schema.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (Response, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSONSchema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = toGenAISchema(req.JSONSchema)
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return Response{}, fmt.Errorf("gemini: generate: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return Response{}, &PermanentError{Provider: "gemini", Reason: "empty completion"}
	}

	tokens := 0
	if result.UsageMetadata != nil {
		tokens = int(result.UsageMetadata.TotalTokenCount)
	}
	return Response{Text: text, Tokens: tokens}, nil
}

func toGenAISchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{Required: s.Required}
	switch s.Type {
	case "array":
		out.Type = genai.TypeArray
		out.Items = toGenAISchema(s.Items)
	case "object":
		out.Type = genai.TypeObject
		if len(s.Properties) > 0 {
			out.Properties = make(map[string]*genai.Schema, len(s.Properties))
			for k, v := range s.Properties {
				out.Properties[k] = toGenAISchema(v)
			}
		}
	case "number":
		out.Type = genai.TypeNumber
	default:
		out.Type = genai.TypeString
	}
	return out
}
