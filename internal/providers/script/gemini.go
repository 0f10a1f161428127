package script

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"neomentor/internal/domain"
	"neomentor/internal/providers/gemini"
)

const defaultGeminiModel = "gemini-2.0-flash"

// ContentGenerator is the slice of the genai Models service the writer uses.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiOptions struct {
	Generator  ContentGenerator
	Model      string
	Fallback   Writer
	OnFallback FallbackFunc
}

type GeminiWriter struct {
	models     ContentGenerator
	model      string
	fallback   Writer
	onFallback FallbackFunc
}

func NewGeminiWriter(opts GeminiOptions) (*GeminiWriter, error) {
	if opts.Generator == nil {
		return nil, errors.New("gemini content generator is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiWriter{
		models:     opts.Generator,
		model:      model,
		fallback:   opts.Fallback,
		onFallback: opts.OnFallback,
	}, nil
}

func (g *GeminiWriter) WriteScript(ctx context.Context, topic string, count int) ([]domain.ScriptSegment, error) {
	if err := validate(topic, count); err != nil {
		return nil, err
	}
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: BuildPrompt(topic, count)}},
	}}
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](temperature),
		TopP:             genai.Ptr[float32](topP),
		TopK:             genai.Ptr[float32](topK),
		MaxOutputTokens:  maxOutputTokens,
		ResponseMIMEType: "application/json",
	}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return g.useFallback(ctx, topic, count, "generate", gemini.WrapError("generate content", err))
	}
	text, err := gemini.ResponseText(resp)
	if err != nil {
		return g.useFallback(ctx, topic, count, "empty_response", err)
	}
	texts, _ := Parse(text, topic, count)
	segments := toSegments(texts, count)
	if len(segments) == 0 {
		return g.useFallback(ctx, topic, count, "parse", errNoSegments)
	}
	return segments, nil
}

func (g *GeminiWriter) useFallback(ctx context.Context, topic string, count int, reason string, err error) ([]domain.ScriptSegment, error) {
	if g.onFallback != nil {
		g.onFallback(reason, err)
	}
	if g.fallback == nil || ctx.Err() != nil {
		return nil, err
	}
	return g.fallback.WriteScript(ctx, topic, count)
}
