package video

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// BuildPrompt wraps one narration segment in presenter guidance for the
// image-to-video model. index is zero based.
func BuildPrompt(topic string, index int, text string) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Educational Video Segment %d about %s:\n%s\n\n", index+1, titleCase(topic), strings.TrimSpace(text))
	sb.WriteString("Animate the subject of the reference image so it presents this idea with energy and conviction, as in a polished teaching video.\n\n")
	sb.WriteString("When the subject is a person: frame them in full, head to toe, with natural gestures and expressions. ")
	sb.WriteString("They talk steadily through the whole clip without pausing. Use cinematic lighting and a clean, well composed shot.\n\n")
	sb.WriteString("When the subject is an object or creature: bring it to life as a friendly character with eyes, a mouth and hands, ")
	sb.WriteString("explaining the idea warmly as if to a curious child.\n\n")
	sb.WriteString("Show only the speaker. No captions, on-screen text, overlays, transitions, music or sound effects.\n")
	sb.WriteString("Keep the delivery expressive and clear from start to finish.")
	return sb.String()
}

// titleCase builds a Caser per call; a Caser is stateful and not safe for
// concurrent use.
func titleCase(s string) string {
	return cases.Title(language.English).String(strings.TrimSpace(s))
}
