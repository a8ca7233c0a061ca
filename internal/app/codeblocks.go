package app

import (
	"regexp"
	"strings"
)

var fencedBlockPattern = regexp.MustCompile("(?s)```(?:\\w+)?\\r?\\n(.*?)```")

// extractCodeBlocks keeps only the fenced code blocks of a raw model reply,
// stripped of their fence markers and info strings, joined by a blank line in
// order of appearance. A reply without any fenced block is returned verbatim:
// callers want compilable snippets when the model supplies them, and the full
// text otherwise.
func extractCodeBlocks(raw string) string {
	matches := fencedBlockPattern.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return raw
	}

	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		if block := strings.TrimSpace(m[1]); block != "" {
			blocks = append(blocks, block)
		}
	}
	if len(blocks) == 0 {
		return raw
	}
	return strings.Join(blocks, "\n\n")
}
