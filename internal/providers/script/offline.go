package script

import (
	"context"
	"fmt"

	"neomentor/internal/domain"
)

var offlineTemplates = []string{
	"Let's explore %s and the simple idea that sits at the heart of it.",
	"To understand %s, start with where it comes from and why people care about it.",
	"Here is how %s works step by step, from the first cause to the final effect.",
	"A good everyday example of %s is closer than you might think.",
	"One common misunderstanding about %s is easy to clear up once you see the pattern.",
	"Scientists and engineers use %s to solve real problems around the world.",
	"Remember the key point: %s connects many things you already know.",
	"Keep exploring %s, because every answer opens a new question worth asking.",
}

// OfflineWriter builds a deterministic script from fixed templates. It needs
// no credentials and backs the model writers when they fail.
type OfflineWriter struct{}

func NewOfflineWriter() *OfflineWriter {
	return &OfflineWriter{}
}

func (OfflineWriter) WriteScript(_ context.Context, topic string, count int) ([]domain.ScriptSegment, error) {
	if err := validate(topic, count); err != nil {
		return nil, err
	}
	name := displayTopic(topic)
	texts := make([]string, 0, count)
	for i := 0; i < count; i++ {
		texts = append(texts, fmt.Sprintf(offlineTemplates[i%len(offlineTemplates)], name))
	}
	return toSegments(texts, count), nil
}
