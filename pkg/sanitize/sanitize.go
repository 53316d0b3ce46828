// Package sanitize cleans model responses before they are written to disk.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	// openingFenceRegex matches a fence opener with an optional info string, e.g. "```markdown".
	openingFenceRegex = regexp.MustCompile("^(`{3,})[ \t]*([^`\n]*?)[ \t]*$")
	// closingFenceRegex matches a bare fence line.
	closingFenceRegex = regexp.MustCompile("^(`{3,})[ \t]*$")
)

// StripCodeFence returns the body of a fenced code block when the whole trimmed
// text is exactly one such block. Anything else is returned unchanged.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return text
	}

	opener := openingFenceRegex.FindStringSubmatch(strings.TrimRight(lines[0], "\r"))
	if opener == nil {
		return text
	}
	fenceLen := len(opener[1])

	last := strings.TrimRight(lines[len(lines)-1], "\r")
	if !isClosingFence(last, fenceLen) {
		return text
	}

	body := lines[1 : len(lines)-1]
	for _, line := range body {
		// an inner closer ends the block early, leaving text outside the fences
		if isClosingFence(strings.TrimRight(line, "\r"), fenceLen) {
			return text
		}
	}

	return strings.Join(body, "\n")
}

func isClosingFence(line string, minLen int) bool {
	match := closingFenceRegex.FindStringSubmatch(line)
	return match != nil && len(match[1]) >= minLen
}
