package summarize

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studybuddy/ingestion/internal/llm"
)

type scriptedChat struct {
	reply string
}

func (s *scriptedChat) ChatOnce(ctx context.Context, system, user string, opts llm.Options) string {
	return s.reply
}

func (s *scriptedChat) ChatJSON(ctx context.Context, system, user string, opts llm.Options) any {
	return nil
}

func (s *scriptedChat) ChatJSONRobust(ctx context.Context, system, user string, opts llm.Options) any {
	return nil
}

func TestCleanChunkText(t *testing.T) {
	t.Run("strips page markers", func(t *testing.T) {
		got := CleanChunkText("[[Page 1]]\nHello   world\n[[Page 2]]\nbye")
		assert.Equal(t, "Hello world bye", got)
	})

	t.Run("collapses whitespace and escape artifacts", func(t *testing.T) {
		got := CleanChunkText(`alpha\n beta\t  gamma`)
		assert.Equal(t, "alpha beta gamma", got)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", CleanChunkText(""))
	})
}

func TestNaiveSummary(t *testing.T) {
	t.Run("truncates to max sentences with terminal punctuation", func(t *testing.T) {
		got := NaiveSummary("One. Two. Three. Four.", 2)
		assert.Equal(t, "One. Two.", got)
	})

	t.Run("short text returned whole", func(t *testing.T) {
		text := "Only one sentence here."
		assert.Equal(t, text, NaiveSummary(text, 3))
	})
}

func TestCheapSummarize(t *testing.T) {
	ctx := context.Background()
	long := strings.Repeat("This sentence pads the input well past the short-text cutoff. ", 5)

	t.Run("uses model reply when available", func(t *testing.T) {
		s := New(&scriptedChat{reply: "A tight summary."})
		assert.Equal(t, "A tight summary.", s.CheapSummarize(ctx, long, 3))
	})

	t.Run("falls back when model returns nothing", func(t *testing.T) {
		s := New(&scriptedChat{reply: ""})
		got := s.CheapSummarize(ctx, long, 2)
		assert.Equal(t, NaiveSummary(long, 2), got)
	})

	t.Run("falls back with no model at all", func(t *testing.T) {
		s := New(nil)
		got := s.CheapSummarize(ctx, long, 3)
		assert.NotEmpty(t, got)
	})

	t.Run("short input passes through untouched", func(t *testing.T) {
		s := New(nil)
		assert.Equal(t, "tiny", s.CheapSummarize(ctx, "  tiny  ", 3))
	})
}
