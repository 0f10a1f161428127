// Package script turns a topic into narration segments using a text model,
// with an offline writer as the fallback.
package script

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"neomentor/internal/domain"
)

const (
	geminiProviderName  = "gemini"
	openAIProviderName  = "openai"
	offlineProviderName = "offline"

	maxOutputTokens = 1000
	temperature     = 0.3
	topP            = 0.8
	topK            = 40
)

// Writer produces up to count narration segments about topic.
type Writer interface {
	WriteScript(ctx context.Context, topic string, count int) ([]domain.ScriptSegment, error)
}

// FallbackFunc is told why a model writer handed over to its fallback.
type FallbackFunc func(reason string, err error)

// displayTopic title-cases topic with a fresh Caser; a Caser is stateful
// and must not be shared between goroutines.
func displayTopic(topic string) string {
	return cases.Title(language.English).String(strings.TrimSpace(topic))
}

// BuildPrompt asks for count short segments as strict JSON.
func BuildPrompt(topic string, count int) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Write a narration script that teaches %q to a general audience. ", displayTopic(topic))
	fmt.Fprintf(sb, "Split it into exactly %d segments. Each segment is spoken over about five seconds, so keep it between 10 and 20 words. ", count)
	sb.WriteString("Reply with JSON only, no markdown and no commentary, using this shape: ")
	fmt.Fprintf(sb, `{"status":"success","topic":%q,"segments":["first segment","second segment"],"total_segments":%d}. `, topic, count)
	sb.WriteString("Every segment must be a plain string. Keep facts accurate and the tone engaging.")
	return sb.String()
}

func validate(topic string, count int) error {
	if strings.TrimSpace(topic) == "" {
		return fmt.Errorf("%w: topic is required", domain.ErrInvalidInput)
	}
	if count <= 0 {
		return fmt.Errorf("%w: segment count must be positive", domain.ErrInvalidInput)
	}
	return nil
}

func toSegments(texts []string, count int) []domain.ScriptSegment {
	out := make([]domain.ScriptSegment, 0, count)
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, domain.ScriptSegment{Index: len(out), Text: t})
		if len(out) == count {
			break
		}
	}
	return out
}
