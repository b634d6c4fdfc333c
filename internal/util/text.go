// ABOUTME: Text helpers shared by display code
// ABOUTME: Rune-aware truncation for history lines and error bodies
package util

import "unicode/utf8"

// Truncate shortens s to maxLen runes, adding "..." if truncated
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// TruncateBytes cuts s to at most maxBytes without splitting a UTF-8 sequence
func TruncateBytes(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
