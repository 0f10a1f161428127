package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"neomentor/internal/domain"
)

const (
	DefaultSeconds     = 15
	MaxSeconds         = 120
	SecondsPerSegment  = 5
	DefaultClipSeconds = 8
)

var clipDurations = map[int]bool{8: true, 16: true, 24: true, 32: true, 40: true, 48: true, 56: true, 64: true}

// Request is a validated generation request.
type Request struct {
	Topic        string
	Seconds      int
	SegmentCount int
	ClipSeconds  int
}

// FormatRequest validates the topic and derives the segment plan from a
// requested time such as "15s".
func FormatRequest(topic, requestedTime string) (Request, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Request{}, fmt.Errorf("%w: Main Topic is required", domain.ErrInvalidInput)
	}
	seconds := ParseSeconds(requestedTime)
	count := seconds / SecondsPerSegment
	if count < 1 {
		count = 1
	}
	return Request{
		Topic:        topic,
		Seconds:      seconds,
		SegmentCount: count,
		ClipSeconds:  NormalizeClipSeconds(seconds),
	}, nil
}

// ParseSeconds reads "15s", "15" or " 15 s". Anything unparsable or out of
// the 1..120 range yields the default.
func ParseSeconds(raw string) int {
	raw = strings.TrimSpace(strings.ToLower(raw))
	raw = strings.TrimSpace(strings.TrimSuffix(raw, "s"))
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > MaxSeconds {
		return DefaultSeconds
	}
	return n
}

// NormalizeClipSeconds maps a duration onto the clip lengths the video
// collaborator accepts.
func NormalizeClipSeconds(d int) int {
	if clipDurations[d] {
		return d
	}
	return DefaultClipSeconds
}
