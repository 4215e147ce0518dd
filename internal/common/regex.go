package common

import (
	"fmt"
	"regexp"
	"strings"
)

// CompileInsensitive compiles a pattern as a case-insensitive regular expression.
func CompileInsensitive(pattern string) (*regexp.Regexp, error) {
	if !strings.HasPrefix(pattern, "(?i)") {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to compile pattern %q: %w", pattern, err)
	}
	return re, nil
}
