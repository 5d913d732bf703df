package gcp

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/catchlog/internal/models"
)

// --- Identifier Model Prompts ---
const IdentifierSystemPrompt = "You are an expert ichthyologist. You identify fish species from photographs taken by anglers and answer only with a single JSON object."
const IdentifierUserPrompt = `Identify the fish in this photo.

Respond with ONLY a JSON object of exactly this shape:
{
  "commonName": "most widely used common name",
  "scientificName": "binomial name",
  "family": "taxonomic family",
  "confidence": "high" | "medium" | "low",
  "characteristics": ["visible identifying feature", "..."],
  "habitat": "typical habitat",
  "averageSize": "typical adult size range",
  "notes": "anything else an angler should know, or an empty string"
}

If no fish is visible, use "Unknown" for the names and "low" for confidence.
Do not include any text before or after the JSON object.`

// VertexClient invokes the identifier model on Vertex AI.
type VertexClient struct {
	IdentifierModel *genai.GenerativeModel
	baseClient      *genai.Client
}

// NewVertexClient creates a client with the identifier model configured.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	identifierModel := baseClient.GenerativeModel(modelName)
	identifierModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(IdentifierSystemPrompt)},
	}
	identifierModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
		MaxOutputTokens:  genai.Ptr[int32](1024),
	}

	return &VertexClient{
		IdentifierModel: identifierModel,
		baseClient:      baseClient,
	}, nil
}

// Identify sends the image and the fixed prompt in one request and returns
// the concatenated text parts of the first candidate.
func (c *VertexClient) Identify(ctx context.Context, image []byte, mediaType string) (string, error) {
	resp, err := c.IdentifierModel.GenerateContent(ctx,
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

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
