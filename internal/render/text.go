package render

import (
	"regexp"
	"strings"
)

var headingPrefix = regexp.MustCompile(`^#+\s*`)

// Text strips markdown down to a plain text rendition. Table pipes are
// kept as column separators, separator rows are dropped, bold markers
// and heading hashes are removed.
func Text(markdown string) string {
	var lines []string
	for _, raw := range strings.Split(markdown, "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|") {
			parts := strings.Split(strings.Trim(line, "|"), "|")
			for i, p := range parts {
				parts[i] = strings.TrimSpace(p)
			}
			if isSeparatorRow(parts) {
				continue
			}
			lines = append(lines, strings.Join(parts, " | "))
			continue
		}
		line = strings.ReplaceAll(line, "**", "")
		line = headingPrefix.ReplaceAllString(line, "")
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n"
}

func isSeparatorRow(parts []string) bool {
	for _, p := range parts {
		if p == "" {
			continue
		}
		if strings.Trim(p, "-") != "" {
			return false
		}
	}
	return true
}
