package ingestion_engine

import "strings"

// Clean normalizes whitespace without touching semantic content: CRLF becomes
// LF, trailing spaces are trimmed per line, and runs of blank lines collapse
// to a single blank line.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blanks := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blanks++
			if blanks > 1 {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, line)
	}

	return strings.Trim(strings.Join(out, "\n"), "\n")
}
