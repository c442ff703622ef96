package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/lithammer/dedent"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const (
	defaultGeminiModel     = "gemini-2.5-flash"
	defaultTemperature     = 0.3
	defaultTopP            = 0.9
	defaultMaxOutputTokens = 3000
)

// MaxSuggestions is the maximum number of remediation suggestions carried
// per detection; extra suggestions from the model are dropped.
const MaxSuggestions = 3

var validationPrompt = dedent.Dedent(`
	Analyze this image of a single electronic device and verify the predicted category.

	Predicted category: %s

	Allowed categories:
	%s

	Respond in JSON format with these fields:
	- valid: true if the predicted category matches the object in the image
	- corrected_category: the correct category from the allowed list if the prediction is wrong, otherwise null
	- reasoning: one short sentence explaining the decision

	Example response:
	{"valid": false, "corrected_category": "Monitor", "reasoning": "The image shows a flat panel monitor, not a TV."}

	Respond ONLY with the JSON object, no markdown or other text.`)

var damagePrompt = dedent.Dedent(`
	Assess the physical condition of the %s shown in this image.

	Respond in JSON format with these fields:
	- level: integer damage level from 1 to 5 (1=excellent, 2=good, 3=fair, 4=poor, 5=severe)
	- analysis: one or two short sentences describing the visible condition

	Example response:
	{"level": 2, "analysis": "Minor scratches on the casing, screen intact."}

	Respond ONLY with the JSON object, no markdown or other text.`)

var describePrompt = dedent.Dedent(`
	Describe the %s shown in this image for an e-waste collection listing.

	Respond in JSON format with these fields:
	- description: one short sentence (max 20 words) describing the visible item, in Indonesian
	- suggestions: a list of exactly 3 short disposal or recycling suggestions, in Indonesian

	Example response:
	{"description": "Laptop hitam dengan casing tergores.", "suggestions": ["Hapus data pribadi sebelum disposal.", "Lepaskan baterai terlebih dahulu.", "Bawa ke pusat daur ulang e-waste."]}

	Respond ONLY with the JSON object, no markdown or other text.`)

var disposalSummaryPrompt = dedent.Dedent(`
	Berikan panduan singkat disposal untuk e-waste items berikut: %s

	Fokus pada:
	1. Cara disposal yang aman dan ramah lingkungan
	2. Persiapan sebelum disposal (hapus data, lepas battery, dll)
	3. Tempat disposal yang tepat di Indonesia
	4. Dampak lingkungan jika tidak di-disposal dengan benar

	Jawab dalam bahasa Indonesia, maksimal 200 kata.`)

// GeminiConfig configures the Gemini-backed analyzer. Zero values fall back
// to the service defaults.
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	TopP            float32
	MaxOutputTokens int32
}

// GeminiAnalyzer implements Analyzer using Google's Gemini API.
type GeminiAnalyzer struct {
	client *genai.Client
	cfg    GeminiConfig
}

// NewGeminiAnalyzer creates a Gemini-backed analyzer.
func NewGeminiAnalyzer(ctx context.Context, cfg GeminiConfig) (*GeminiAnalyzer, error) {
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.TopP == 0 {
		cfg.TopP = defaultTopP
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = defaultMaxOutputTokens
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiAnalyzer{client: client, cfg: cfg}, nil
}

// ValidateCategory implements the Analyzer interface using Gemini vision.
func (g *GeminiAnalyzer) ValidateCategory(ctx context.Context, crop []byte, candidate string, allowed []string) (*Validation, error) {
	var lines []string
	for _, c := range allowed {
		lines = append(lines, "- "+c)
	}
	prompt := fmt.Sprintf(validationPrompt, candidate, strings.Join(lines, "\n"))

	text, err := g.generate(ctx, prompt, crop, "validate")
	if err != nil {
		return nil, err
	}
	return parseValidation(text)
}

// AssessDamage implements the Analyzer interface using Gemini vision.
func (g *GeminiAnalyzer) AssessDamage(ctx context.Context, crop []byte, category string) (*DamageAssessment, error) {
	text, err := g.generate(ctx, fmt.Sprintf(damagePrompt, category), crop, "damage")
	if err != nil {
		return nil, err
	}
	return parseDamage(text)
}

// Describe implements the Analyzer interface using Gemini vision.
func (g *GeminiAnalyzer) Describe(ctx context.Context, crop []byte, category string) (*Description, error) {
	text, err := g.generate(ctx, fmt.Sprintf(describePrompt, category), crop, "describe")
	if err != nil {
		return nil, err
	}
	return parseDescription(text)
}

// DisposalSummary implements the Analyzer interface with a text-only call.
func (g *GeminiAnalyzer) DisposalSummary(ctx context.Context, categories []string) (string, error) {
	if len(categories) == 0 {
		return "", fmt.Errorf("no categories provided")
	}
	prompt := fmt.Sprintf(disposalSummaryPrompt, strings.Join(categories, ", "))

	text, err := g.generate(ctx, prompt, nil, "disposal_summary")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// generate executes one Gemini call with the shared generation config and
// returns the raw response text.
func (g *GeminiAnalyzer) generate(ctx context.Context, prompt string, imageData []byte, stage string) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if imageData != nil {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{Data: imageData, MIMEType: "image/jpeg"},
		})
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.cfg.Temperature),
		TopP:            genai.Ptr(g.cfg.TopP),
		MaxOutputTokens: g.cfg.MaxOutputTokens,
	}

	result, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from Gemini: %w", ErrMalformed)
	}

	if result.UsageMetadata != nil {
		log.Debug().
			Str("model", g.cfg.Model).
			Str("stage", stage).
			Int64("inputTokens", int64(result.UsageMetadata.PromptTokenCount)).
			Int64("outputTokens", int64(result.UsageMetadata.CandidatesTokenCount)).
			Msg("gemini call")
	}

	return result.Text(), nil
}

// extractJSONObject extracts a JSON object from text that may contain
// markdown code blocks or other formatting.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response %q: %w", text, ErrMalformed)
	}
	return text[start : end+1], nil
}

func parseValidation(text string) (*Validation, error) {
	jsonStr, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var v Validation
	if err := json.Unmarshal([]byte(jsonStr), &v); err != nil {
		return nil, fmt.Errorf("failed to parse validation response (%s): %w", jsonStr, ErrMalformed)
	}
	return &v, nil
}

func parseDamage(text string) (*DamageAssessment, error) {
	jsonStr, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var d DamageAssessment
	if err := json.Unmarshal([]byte(jsonStr), &d); err != nil {
		return nil, fmt.Errorf("failed to parse damage response (%s): %w", jsonStr, ErrMalformed)
	}
	if d.Level < 1 || d.Level > 5 {
		return nil, fmt.Errorf("damage level %d out of range: %w", d.Level, ErrMalformed)
	}
	return &d, nil
}

func parseDescription(text string) (*Description, error) {
	jsonStr, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var d Description
	if err := json.Unmarshal([]byte(jsonStr), &d); err != nil {
		return nil, fmt.Errorf("failed to parse description response (%s): %w", jsonStr, ErrMalformed)
	}
	d.Description = CleanDescription(d.Description)
	if d.Description == "" || len(d.Suggestions) == 0 {
		return nil, fmt.Errorf("description response missing fields: %w", ErrMalformed)
	}
	if len(d.Suggestions) > MaxSuggestions {
		d.Suggestions = d.Suggestions[:MaxSuggestions]
	}
	return &d, nil
}

const maxDescriptionLen = 100

var (
	markdownChars  = regexp.MustCompile(`[*_#]`)
	labelPrefix    = regexp.MustCompile(`(?i)^(kategori|analisis|deskripsi)[:.]\s*`)
	listMarkers    = regexp.MustCompile(`(?m)^(\d+\.|[-•])\s*`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// CleanDescription strips markdown, list markers, and label prefixes from
// model-generated description text and collapses whitespace. Overlong text
// is cut at the first sentence.
func CleanDescription(description string) string {
	description = markdownChars.ReplaceAllString(description, "")
	description = labelPrefix.ReplaceAllString(description, "")
	description = listMarkers.ReplaceAllString(description, "")
	description = whitespaceRuns.ReplaceAllString(description, " ")
	description = strings.TrimSpace(description)

	if len(description) > maxDescriptionLen {
		description = strings.SplitN(description, ".", 2)[0] + "."
	}
	return description
}
