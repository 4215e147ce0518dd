package extraction

import (
	"regexp"
	"strings"
)

var (
	// Columns in text renditions are separated by tabs or runs of two or more spaces.
	cellSeparator = regexp.MustCompile(`\t+| {2,}`)
	lineNumber    = regexp.MustCompile(`^\d{1,3}$`)
	lineNumberPre = regexp.MustCompile(`^\d{1,3}\s+`)
	datePattern   = regexp.MustCompile(`^\d{1,2}\.\d{1,2}\.(\d{2}|\d{4})?$`)
	innerSpaces   = regexp.MustCompile(`\s+`)
	yearPattern   = regexp.MustCompile(`(?:^|[^\d])((?:19|20)\d{2})(?:[^\d]|$)`)
)

// splitLines normalizes line endings and splits text into lines.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

// splitCells splits a line into its column cells.
func splitCells(line string) []string {
	line = strings.TrimSpace(strings.ReplaceAll(line, " ", " "))
	if line == "" {
		return nil
	}
	return cellSeparator.Split(line, -1)
}

// labelCell returns the position and normalized text of a line's description cell.
// A bare line number or booking date in the first cells is skipped.
func labelCell(cells []string) (int, string, bool) {
	for i := 0; i < len(cells) && i < 3; i++ {
		c := strings.TrimSpace(cells[i])
		if c == "" || lineNumber.MatchString(c) || datePattern.MatchString(c) || IsAmount(c) {
			continue
		}
		return i, normalizeLabel(c), true
	}
	return 0, "", false
}

// normalizeLabel lowercases, strips a leading line number and trailing colon and
// collapses inner whitespace.
func normalizeLabel(s string) string {
	s = strings.TrimSpace(s)
	s = lineNumberPre.ReplaceAllString(s, "")
	s = strings.TrimSuffix(s, ":")
	s = innerSpaces.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}

// numericCells returns the 1-based positions of the cells that parse as amounts,
// ignoring the label cell and anything before it.
func numericCells(cells []string, labelIdx int) []int {
	var out []int
	for i := labelIdx + 1; i < len(cells); i++ {
		if IsAmount(cells[i]) {
			out = append(out, i+1)
		}
	}
	return out
}

// headerIndex finds a column name in a header line and returns its 1-based position.
func headerIndex(header []string, name string) (int, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return 0, false
	}
	for i, c := range header {
		if strings.ToLower(strings.TrimSpace(c)) == want {
			return i + 1, true
		}
	}
	return 0, false
}

// findPeriod returns the first plausible tax year in the filename or the opening lines.
func findPeriod(filename string, lines []string) string {
	if m := yearPattern.FindStringSubmatch(filename); m != nil {
		return m[1]
	}
	for i, line := range lines {
		if i >= 10 {
			break
		}
		if m := yearPattern.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}
