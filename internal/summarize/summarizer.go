package summarize

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/studybuddy/ingestion/internal/llm"
)

const summarySystemPrompt = "You summarize study material. Return only the summary " +
	"itself: no preface, no meta commentary, no markdown. Be concise and factual."

var (
	pageMarker      = regexp.MustCompile(`\[\[Page \d+\]\]`)
	sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

// Summarizer produces short summaries, LLM-backed with a naive
// sentence-truncation fallback.
type Summarizer struct {
	chat llm.Chat
}

func New(chat llm.Chat) *Summarizer {
	return &Summarizer{chat: chat}
}

// CheapSummarize returns a concise summary of at most maxSentences
// sentences. When the model is unavailable it falls back to the first
// sentences of the input.
func (s *Summarizer) CheapSummarize(ctx context.Context, text string, maxSentences int) string {
	text = strings.TrimSpace(text)
	if len(text) < 50 {
		return text
	}

	if s.chat != nil {
		prompt := "Summarize the following in at most " +
			strconv.Itoa(maxSentences) + " sentences:\n\n" + text
		if out := s.chat.ChatOnce(ctx, summarySystemPrompt, prompt, llm.Options{
			Class:       llm.Small,
			MaxTokens:   64 * maxSentences,
			Temperature: 0.2,
		}); out != "" {
			return out
		}
	}

	return NaiveSummary(text, maxSentences)
}

// NaiveSummary takes the first maxSentences sentences, preserving terminal
// punctuation.
func NaiveSummary(text string, maxSentences int) string {
	parts := sentencePattern.FindAllString(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); strings.TrimSpace(strings.TrimRight(p, ".!?")) != "" {
			sentences = append(sentences, p)
		}
	}
	if len(sentences) <= maxSentences {
		return strings.TrimSpace(text)
	}

	summary := strings.Join(sentences[:maxSentences], " ")
	if !strings.HasSuffix(summary, ".") && !strings.HasSuffix(summary, "!") && !strings.HasSuffix(summary, "?") {
		summary += "."
	}
	return summary
}

// CleanChunkText normalizes whitespace and strips the [[Page N]] markers
// the chunker inserts between pages. Pure; no model involved.
func CleanChunkText(text string) string {
	if text == "" {
		return ""
	}
	text = pageMarker.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, `\n`, " ")
	text = strings.ReplaceAll(text, `\t`, " ")
	return strings.Join(strings.Fields(text), " ")
}
