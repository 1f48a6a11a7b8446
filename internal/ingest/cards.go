package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/studybuddy/ingestion/internal/llm"
	"github.com/studybuddy/ingestion/internal/models"
	"github.com/studybuddy/ingestion/internal/summarize"
	"github.com/studybuddy/ingestion/pkg/chunker"
	"github.com/studybuddy/ingestion/pkg/textextract"
)

// enrichConcurrency caps the parallel topic/summary model calls per file.
const enrichConcurrency = 4

// largeDocThreshold switches the segmentation model class to LARGE.
const largeDocThreshold = 200_000

const segmentSystemPrompt = "You split documents into self-contained, semantically " +
	"coherent chunks of roughly 150-400 words each. Respond with a JSON array of " +
	"strings, one chunk per element, covering the entire document in order. " +
	"Return only the JSON array, with no commentary."

const topicSystemPrompt = "Provide a short topic or title for the given text. " +
	"Return only the topic itself, with no preface."

// CardBuilder turns a file's page sequence into ordered, enriched cards.
type CardBuilder struct {
	chat llm.Chat
	sum  *summarize.Summarizer
	opts chunker.Options
}

func NewCardBuilder(chat llm.Chat, sum *summarize.Summarizer, opts chunker.Options) *CardBuilder {
	return &CardBuilder{chat: chat, sum: sum, opts: opts}
}

// BuildCards assembles the page texts into one working document, segments
// it (model-assisted with a deterministic fallback), and enriches every
// chunk with a topic and a short summary. Output order follows document
// order.
func (b *CardBuilder) BuildCards(ctx context.Context, pages []textextract.Page, filename, userID, projectID string) []models.Chunk {
	var sb strings.Builder
	for _, p := range pages {
		fmt.Fprintf(&sb, "\n\n[[Page %d]]\n%s\n", p.PageNum, strings.TrimSpace(p.Text))
	}
	full := sb.String()
	if strings.TrimSpace(summarize.CleanChunkText(full)) == "" {
		return nil
	}

	raw := b.segment(ctx, full)

	cleaned := make([]string, 0, len(raw))
	for _, r := range raw {
		if c := summarize.CleanChunkText(r); c != "" {
			cleaned = append(cleaned, c)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}

	firstPage, lastPage := 1, 1
	if len(pages) > 0 {
		firstPage = pages[0].PageNum
		lastPage = pages[len(pages)-1].PageNum
	}
	slug := Slugify(filename)

	cards := make([]models.Chunk, len(cleaned))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i, content := range cleaned {
		g.Go(func() error {
			cards[i] = models.Chunk{
				UserID:    userID,
				ProjectID: projectID,
				Filename:  filename,
				TopicName: b.topicFor(gctx, content),
				Summary:   b.sum.CheapSummarize(gctx, content, 3),
				Content:   content,
				PageSpan:  [2]int{firstPage, lastPage},
				CardID:    fmt.Sprintf("%s-c%04d", slug, i+1),
			}
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("built cards", "filename", filename, "pages", len(pages), "cards", len(cards))
	return cards
}

// segment asks the model for chunk boundaries and falls back to the
// heading-based chunker when the reply is missing or malformed.
func (b *CardBuilder) segment(ctx context.Context, full string) []string {
	if b.chat != nil {
		opts := llm.Options{Class: llm.Small, MaxTokens: 4096, Temperature: 0.1}
		if len(full) > largeDocThreshold {
			opts.Class = llm.Large
		}
		v := b.chat.ChatJSONRobust(ctx, segmentSystemPrompt, full, opts)
		if segs, ok := llm.StringArray(v); ok {
			slog.Debug("model segmentation accepted", "chunks", len(segs))
			return segs
		}
	}
	return chunker.Chunk(full, b.opts)
}

func (b *CardBuilder) topicFor(ctx context.Context, content string) string {
	if b.chat != nil {
		topic := b.chat.ChatOnce(ctx, topicSystemPrompt, content, llm.Options{
			Class:       llm.Small,
			MaxTokens:   24,
			Temperature: 0.1,
		})
		if topic != "" {
			return truncate(topic, 120)
		}
	}
	return truncate(content, 80) + "…"
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases and collapses everything outside [a-z0-9] into single
// dashes: "Lecture 1.pdf" -> "lecture-1-pdf".
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = slugStrip.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
