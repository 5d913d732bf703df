package gcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Lllllllleong/catchlog/internal/models"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiAPIClient invokes the identifier model through the Gemini API with
// an API key, for deployments outside Vertex AI.
type GeminiAPIClient struct {
	model      *genai.GenerativeModel
	baseClient *genai.Client
}

// NewGeminiAPIClient creates an API-key client with the identifier model
// configured the same way as on Vertex AI.
func NewGeminiAPIClient(ctx context.Context, apiKey, modelName string) (*GeminiAPIClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	baseClient, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	m := baseClient.GenerativeModel(strings.TrimSpace(modelName))
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(IdentifierSystemPrompt)},
	}
	m.ResponseMIMEType = "application/json"
	m.SetTemperature(0)
	m.SetMaxOutputTokens(1024)

	return &GeminiAPIClient{model: m, baseClient: baseClient}, nil
}

// Identify mirrors VertexClient.Identify.
func (c *GeminiAPIClient) Identify(ctx context.Context, image []byte, mediaType string) (string, error) {
	resp, err := c.model.GenerateContent(ctx,
		genai.Blob{MIMEType: mediaType, Data: image},
		genai.Text(IdentifierUserPrompt),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", models.ErrNoText
	}

	var text strings.Builder
	var found bool
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
			found = true
		}
	}
	if !found {
		return "", models.ErrNoText
	}
	return text.String(), nil
}

func (c *GeminiAPIClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
