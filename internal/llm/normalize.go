package llm

import "strings"

// Conversational openers and meta phrases models keep prepending despite
// instructions. Checked case-insensitively against the start of the output.
var bannedPrefixes = []string{
	"sure,", "sure.", "sure", "here is", "here are", "this image", "the image",
	"image shows", "the picture", "the photo", "the text describes",
	"the text describe", "it shows", "it depicts", "caption:", "description:",
	"output:", "result:", "answer:", "analysis:", "observation:", "topic:",
	"title:", "summary:",
}

// Normalize strips conversational prefixes, leading list markers and
// surrounding quotes, and collapses whitespace, so callers can use the raw
// string as a label or summary.
func Normalize(text string) string {
	t := strings.TrimSpace(text)
	if t == "" {
		return ""
	}

	lower := strings.ToLower(t)
	for _, p := range bannedPrefixes {
		if strings.HasPrefix(lower, p) {
			t = strings.TrimLeft(t[len(p):], " :-—–")
			lower = strings.ToLower(t)
		}
	}

	t = strings.TrimLeft(t, "-*• \t")
	t = strings.Trim(strings.TrimSpace(t), `"'`)
	return strings.Join(strings.Fields(t), " ")
}
