package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Lllllllleong/catchlog/internal/models"
)

// codeFenceRegex matches ``` optionally followed by a language tag, anywhere
// in the text.
var codeFenceRegex = regexp.MustCompile("```[A-Za-z0-9_+-]*")

// parseIdentification strips Markdown code fences from the model's answer and
// parses what remains. The remainder must be a single JSON object; prose
// around it is not tolerated. Field contents are not validated.
func parseIdentification(raw string) (models.Identification, error) {
	cleaned := strings.TrimSpace(codeFenceRegex.ReplaceAllString(raw, ""))

	var value any
	if err := json.Unmarshal([]byte(cleaned), &value); err != nil {
		return nil, fmt.Errorf("failed to parse model response as JSON: %w", err)
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, models.ErrInvalidResponse
	}
	return models.Identification(obj), nil
}
