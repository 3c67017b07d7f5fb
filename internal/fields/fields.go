// Package fields holds the document-level pattern matchers. Each extractor
// finds a labeled anchor line and scans a bounded window of nearby lines for
// the first value of the expected shape; invoice renderers frequently split a
// label from its value across adjacent lines, so same-line regexes alone miss
// values.
package fields

import (
	"fmt"
	"strings"

	"github.com/vinodex/invoice-reconciler/internal/normalize"
)

// NotFoundError reports that an extractor's anchor pattern was absent.
// Recoverable: callers decide per field whether absence is fatal.
type NotFoundError struct {
	Field string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("field not found: %s", e.Field)
}

// anchorIndexes returns the indexes of all lines whose normalized form
// satisfies match.
func anchorIndexes(lines []string, match func(norm string) bool) []int {
	var idx []int
	for i, line := range lines {
		if match(normalize.Normalize(line)) {
			idx = append(idx, i)
		}
	}
	return idx
}

// window returns lines[start:start+width] clamped to the slice, including the
// anchor line itself.
func window(lines []string, start, width int) []string {
	if start < 0 {
		start = 0
	}
	end := start + width
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return nil
	}
	return lines[start:end]
}

// firstInWindow applies extract to each window line in order and returns the
// first non-empty result.
func firstInWindow(win []string, extract func(line string) string) (string, bool) {
	for _, line := range win {
		if v := extract(line); v != "" {
			return v, true
		}
	}
	return "", false
}

func containsAll(norm string, tokens ...string) bool {
	for _, tok := range tokens {
		if !strings.Contains(norm, tok) {
			return false
		}
	}
	return true
}
