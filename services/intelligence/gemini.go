// File: services/intelligence/gemini.go
package intelligence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"venuepilot/models"
	"venuepilot/services/engine"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider implements the detector, extractor and polisher contracts
// against the Gemini API. Every call receives one context packet and must
// come back as schema-valid JSON; free text is a ProviderFailure, never
// parsed ad hoc.
type GeminiProvider struct {
	model *genai.GenerativeModel
}

func NewGeminiProvider(apiKey string) *GeminiProvider {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		panic(fmt.Sprintf("failed to create Gemini client: %v", err))
	}

	model := client.GenerativeModel("models/gemini-1.5-pro")
	model.ResponseMIMEType = "application/json"
	return &GeminiProvider{model: model}
}

func (g *GeminiProvider) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", engine.NewProviderFailure("gemini generate error: %v", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", engine.NewProviderFailure("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}
	return stripFences(sb.String()), nil
}

// Detect classifies the message against the current step using only the
// packet's anchor for short replies.
func (g *GeminiProvider) Detect(ctx context.Context, packet models.ContextPacket) (models.RouteResult, error) {
	var b strings.Builder
	b.WriteString("You route one client email in a venue booking conversation.\n")
	fmt.Fprintf(&b, "Current step goal: %s\n", packet.Goal)
	if packet.Anchor != "" {
		fmt.Fprintf(&b, "The last question we asked the client (the only prior context you get): %q\n", packet.Anchor)
	} else {
		b.WriteString("No question is outstanding. A bare acknowledgement cannot be resolved: answer ambiguous.\n")
	}
	b.WriteString("If the reply is a short acknowledgement that does not literally select one of the offered choices, answer ambiguous.\n")
	fmt.Fprintf(&b, "Client message: %q\n", packet.Message)
	b.WriteString(`Respond with JSON only: {"kind":"continue|detour|confirm|reject|ambiguous","intent":"<detour topic or empty>","confidence":0.0-1.0}`)

	raw, err := g.generate(ctx, b.String())
	if err != nil {
		return models.RouteResult{}, err
	}

	var result models.RouteResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return models.RouteResult{}, engine.NewProviderFailure("detection response is not valid JSON: %v", err)
	}
	switch result.Kind {
	case models.RouteContinue, models.RouteDetour, models.RouteConfirm, models.RouteReject, models.RouteAmbiguous:
	default:
		return models.RouteResult{}, engine.NewProviderFailure("detection returned unknown kind %q", result.Kind)
	}
	return result, nil
}

// Extract returns only the fields the message newly asserts. The prompt
// forbids guessing; absent fields stay null and the engine's merge leaves
// them untouched.
func (g *GeminiProvider) Extract(ctx context.Context, packet models.ContextPacket) (models.EventDelta, error) {
	var b strings.Builder
	b.WriteString("Extract booking facts from one client email.\n")
	b.WriteString("Known facts:\n")
	for k, v := range packet.Facts {
		fmt.Fprintf(&b, "  %s: %s\n", k, v)
	}
	fmt.Fprintf(&b, "Client message: %q\n", packet.Message)
	b.WriteString("Return JSON with ONLY the fields the message itself newly states; omit everything else entirely. Never repeat known facts the message does not mention and never guess.\n")
	b.WriteString(`Schema: {"guests":int,"date":"YYYY-MM-DD","room_type":string,"seating":string,"budget":float,"notes":string,"date_confirmed":bool}`)

	raw, err := g.generate(ctx, b.String())
	if err != nil {
		return models.EventDelta{}, err
	}

	var delta models.EventDelta
	if err := json.Unmarshal([]byte(raw), &delta); err != nil {
		return models.EventDelta{}, engine.NewProviderFailure("extraction response is not valid JSON: %v", err)
	}
	return delta, nil
}

// Polish rephrases template text. The verbalizer validates that every
// factual field survived and discards the polish otherwise.
func (g *GeminiProvider) Polish(ctx context.Context, text string, language string) (string, error) {
	prompt := fmt.Sprintf(
		"Rewrite the following %s email so it reads naturally and warmly. Keep every date, price, number and room name EXACTLY as written. Return JSON: {\"text\": \"...\"}\n\n%s",
		languageName(language), text)

	raw, err := g.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return "", engine.NewProviderFailure("polish response is not valid JSON: %v", err)
	}
	if out.Text == "" {
		return "", engine.NewProviderFailure("polish returned empty text")
	}
	return out.Text, nil
}

func languageName(code string) string {
	if code == "de" {
		return "German"
	}
	return "English"
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
