package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const translationPrompt = `You translate short on-screen captions for video timelines.
Translate the user's text into the requested language. Keep line breaks, keep
proper nouns unchanged, and do not add commentary.
Respond with JSON only: {"translation": "<translated text>"}`

// Translate renders text into the target language.
func (c *Client) Translate(ctx context.Context, text string, target language.Tag) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if target == language.Und {
		return "", errors.New("llm translate: target language required")
	}
	request, err := json.Marshal(map[string]string{
		"language": target.String(),
		"name":     display.English.Tags().Name(target),
		"text":     text,
	})
	if err != nil {
		return "", fmt.Errorf("llm translate: encode prompt: %w", err)
	}
	content, err := c.CompleteJSON(ctx, translationPrompt, string(request))
	if err != nil {
		return "", err
	}
	var parsed struct {
		Translation string `json:"translation"`
	}
	if err := DecodeJSON(content, &parsed); err != nil {
		return "", fmt.Errorf("llm translate: parse payload: %w", err)
	}
	translated := strings.TrimSpace(parsed.Translation)
	if translated == "" {
		return "", errors.New("llm translate: empty translation")
	}
	return translated, nil
}
