// Package chunker splits document text into retrieval-sized pieces: a
// heading-aware coarse split followed by fixed-size word windows with
// carry-over overlap between adjacent windows.
package chunker

import (
	"regexp"
	"sort"
	"strings"
)

type Options struct {
	MaxWords     int // window size, in words
	MinWords     int // soft minimum for a terminal window
	OverlapWords int // words carried over from the previous window
}

func DefaultOptions() Options {
	return Options{
		MaxWords:     450,
		MinWords:     150,
		OverlapWords: 50,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxWords <= 0 {
		o.MaxWords = d.MaxWords
	}
	if o.MinWords <= 0 {
		o.MinWords = d.MinWords
	}
	if o.OverlapWords < 0 {
		o.OverlapWords = 0
	}
	return o
}

var headingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^(#{1,6}\s.*)\s*$`),                          // markdown ATX
	regexp.MustCompile(`(?m)^([0-9]+(?:\.[0-9]+)*\.?\s+[^\n]+)\s*$`),     // 1. / 2.1 numbered
	regexp.MustCompile(`(?m)^([A-Z][A-Za-z0-9\s\-]{2,}\n[-=]{3,})\s*$`),  // underlined
	regexp.MustCompile(`(?m)^(Chapter\s+\d+.*|Section\s+\d+.*)\s*$`),     // chapter/section
	regexp.MustCompile(`(?m)^(Abstract|Introduction|Conclusion|References|Bibliography)\s*$`),
}

// SplitByHeadings splits text on every recognized heading. Matches from
// all patterns are merged and sorted by position; the heading lines and
// the spans between them are all preserved.
func SplitByHeadings(text string) []string {
	type match struct{ start, end int }
	var matches []match
	for _, p := range headingPatterns {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			matches = append(matches, match{loc[0], loc[1]})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].start < matches[j].start })

	var parts []string
	last := 0
	for _, m := range matches {
		if m.start < last {
			continue
		}
		if m.start > last {
			parts = append(parts, text[last:m.start])
		}
		parts = append(parts, text[m.start:m.end])
		last = m.end
	}
	if last < len(text) {
		parts = append(parts, text[last:])
	}
	if len(parts) == 0 {
		parts = []string{text}
	}
	return parts
}

// WindowBlocks size-normalizes blocks into word windows. Blocks at or
// under MaxWords are emitted verbatim. Larger blocks are cut into MaxWords
// windows; each window after the first is prefixed with the last
// OverlapWords words of the previously emitted window, so no window
// exceeds MaxWords+OverlapWords. A terminal remainder shorter than
// MinWords is folded into the last window when it fits that bound.
func WindowBlocks(blocks []string, opts Options) []string {
	opts = opts.withDefaults()

	var out []string
	for _, block := range blocks {
		words := strings.Fields(block)
		if len(words) == 0 {
			continue
		}
		if len(words) <= opts.MaxWords {
			out = append(out, strings.TrimSpace(block))
			continue
		}

		for start := 0; start < len(words); {
			var chunk []string
			if start > 0 && len(out) > 0 {
				prev := strings.Fields(out[len(out)-1])
				from := len(prev) - opts.OverlapWords
				if from < 0 {
					from = 0
				}
				chunk = append(chunk, prev[from:]...)
			}

			end := start + opts.MaxWords
			if end > len(words) {
				end = len(words)
			}
			if rem := len(words) - end; rem > 0 && rem < opts.MinWords &&
				len(chunk)+(end-start)+rem <= opts.MaxWords+opts.OverlapWords {
				end = len(words)
			}

			chunk = append(chunk, words[start:end]...)
			out = append(out, strings.Join(chunk, " "))
			start = end
		}
	}
	return out
}

// Chunk is the deterministic fallback pipeline: heading split, then
// windowing.
func Chunk(text string, opts Options) []string {
	return WindowBlocks(SplitByHeadings(text), opts)
}
