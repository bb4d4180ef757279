package analyst

import "strings"

// ExtractCode pulls the snippet out of a markdown-style model response. The
// first fenced block wins; a response with no fence is treated as raw code.
func ExtractCode(text string) string {
	patterns := []string{
		"```go\n",
		"```go\r\n",
		"```\n",
	}

	for _, pattern := range patterns {
		if idx := strings.Index(text, pattern); idx != -1 {
			start := idx + len(pattern)
			end := strings.Index(text[start:], "```")
			if end != -1 {
				return strings.TrimSpace(text[start : start+end])
			}
		}
	}

	return strings.TrimSpace(text)
}
