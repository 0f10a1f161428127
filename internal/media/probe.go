package media

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration returns the container duration of path in seconds. Any
// failure yields 0, which callers treat as "unknown".
func (t *Toolkit) ProbeDuration(ctx context.Context, path string) float64 {
	out, err := t.exec.Run(ctx, t.ffprobe, "-v", "quiet", "-print_format", "json", "-show_format", path)
	if err != nil {
		t.logger.Warn().Err(err).Str("path", path).Msg("media: probe duration failed")
		return 0
	}
	d := parseProbeDuration(out)
	if d == 0 {
		t.logger.Warn().Str("path", path).Msg("media: probe returned no duration")
	}
	return d
}

func parseProbeDuration(out []byte) float64 {
	raw := strings.TrimSpace(string(out))
	if raw == "" {
		return 0
	}
	if strings.HasPrefix(raw, "{") {
		var parsed probeOutput
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return 0
		}
		raw = strings.TrimSpace(parsed.Format.Duration)
	}
	d, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return 0
	}
	return d
}
