package mysql

import "strings"

// keyOrDefault returns "analysis_history" when the key is empty/whitespace
func keyOrDefault(s string) string {
	if strings.TrimSpace(s) == "" {
		return "analysis_history"
	}
	return s
}
