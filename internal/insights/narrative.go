package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Narrator produces a free-text commentary on a spending summary using Gemini.
type Narrator struct {
	model string
}

// NewNarrator creates a Narrator that uses the given Gemini model.
func NewNarrator(model string) *Narrator {
	return &Narrator{model: model}
}

// Narrate asks the model for a short commentary on the summary.
// It expects the model to return a STRICT JSON object with a single
// "narrative" field.
func (n *Narrator) Narrate(ctx context.Context, summary Summary) (string, error) {
	prompt := buildNarrativePrompt(summary)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("narrate: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, n.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("narrate: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return "", fmt.Errorf("narrate: empty response from model")
	}

	// Clean up Markdown fences / extra text if the model ignored instructions.
	clean := cleanModelJSON(rawText)

	var parsed struct {
		Narrative string `json:"narrative"`
	}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return "", fmt.Errorf("narrate: unmarshal JSON: %w\nraw response: %s", err, rawText)
	}
	if parsed.Narrative == "" {
		return "", fmt.Errorf("narrate: model returned no narrative")
	}

	return parsed.Narrative, nil
}

func buildNarrativePrompt(summary Summary) string {
	var b strings.Builder

	b.WriteString("You are a personal finance assistant for a Chilean user.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Write a short commentary (2-3 sentences, in Spanish) on the spending summary below.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no extra text).\n")
	b.WriteString("- Output a single JSON object: {\"narrative\": \"...\"}\n")
	b.WriteString("- Do NOT wrap the response in code fences.\n\n")

	fmt.Fprintf(&b, "Total spent (CLP): %.0f\n", summary.TotalSpent)
	b.WriteString("Spending by category:\n")
	for _, ct := range summary.CategoryTotals {
		fmt.Fprintf(&b, "- %s: %.0f\n", ct.Category, ct.Amount)
	}

	return b.String()
}

// cleanModelJSON strips Markdown fences and surrounding junk from a model
// response that should have been raw JSON.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// If there's still junk around the JSON object, keep only from the
	// first '{' to the last '}'.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
