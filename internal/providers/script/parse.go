package script

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Method names which salvage step produced the segments.
type Method string

const (
	MethodJSON      Method = "json"
	MethodRepaired  Method = "repaired"
	MethodFragment  Method = "fragment"
	MethodSentences Method = "sentences"
)

const maxSegmentWords = 40

var (
	errNoSegments = errors.New("no segments in payload")

	objectPattern  = regexp.MustCompile(`(?s)\{.*\}`)
	sentenceSplit  = regexp.MustCompile(`[.!?]+`)
	leadInPattern  = regexp.MustCompile(`(?i)^(here's|this is|the|a|an)\s+`)
	segmentTextKey = []string{"text", "content", "narration", "segment"}
)

type scriptPayload struct {
	Status        string            `json:"status"`
	Topic         string            `json:"topic"`
	Segments      []json.RawMessage `json:"segments"`
	TotalSegments int               `json:"total_segments"`
}

// Parse extracts narration text from a model reply. Well formed JSON is
// preferred; broken JSON is repaired; anything else is split into sentences
// and padded with filler up to count.
func Parse(raw, topic string, count int) ([]string, Method) {
	text := trimCodeFence(raw)
	if segs, err := decodeSegments(text); err == nil {
		return segs, MethodJSON
	}
	if repaired, err := jsonrepair.JSONRepair(text); err == nil {
		if segs, err := decodeSegments(repaired); err == nil {
			return segs, MethodRepaired
		}
	}
	if frag := objectPattern.FindString(text); frag != "" {
		if segs, err := decodeSegments(frag); err == nil {
			return segs, MethodFragment
		}
		if repaired, err := jsonrepair.JSONRepair(frag); err == nil {
			if segs, err := decodeSegments(repaired); err == nil {
				return segs, MethodFragment
			}
		}
	}
	return sentenceSegments(text, topic, count), MethodSentences
}

func decodeSegments(text string) ([]string, error) {
	var payload scriptPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, err
	}
	var out []string
	for _, item := range payload.Segments {
		if s := segmentText(item); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, errNoSegments
	}
	return out, nil
}

// segmentText accepts either a bare string or an object carrying the text
// under one of the usual keys.
func segmentText(item json.RawMessage) string {
	var s string
	if err := json.Unmarshal(item, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj map[string]any
	if err := json.Unmarshal(item, &obj); err != nil {
		return ""
	}
	for _, key := range segmentTextKey {
		if v, ok := obj[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func sentenceSegments(text, topic string, count int) []string {
	var out []string
	current := ""
	for _, sentence := range sentenceSplit.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		sentence = strings.TrimSpace(leadInPattern.ReplaceAllString(sentence, ""))
		if sentence == "" {
			continue
		}
		candidate := sentence
		if current != "" {
			candidate = current + ". " + sentence
		}
		if len(strings.Fields(candidate)) <= maxSegmentWords {
			current = candidate
			continue
		}
		if current != "" {
			out = append(out, current+".")
			if len(out) >= count {
				return out
			}
		}
		current = sentence
	}
	if current != "" && len(out) < count {
		out = append(out, current+".")
	}
	for len(out) < count {
		out = append(out, fillerSegment(topic))
	}
	return out[:count]
}

func fillerSegment(topic string) string {
	return fmt.Sprintf("Additional educational information about %s and its key concepts.", displayTopic(topic))
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
