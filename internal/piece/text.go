package piece

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// hexColorRegex accepts #rgb and #rrggbb.
var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// NormalizeRoom normalizes a room name:
// 1. Trim leading/trailing whitespace
// 2. Lowercase
// 3. Collapse internal whitespace to single spaces
func NormalizeRoom(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// CountChars returns the character count as runes (not bytes).
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}

// TextTooLong reports whether text exceeds max runes. max <= 0 disables the check.
func TextTooLong(text string, max int) bool {
	return max > 0 && CountChars(text) > max
}

// IsBlank reports whether text has no visible content.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// ValidColor reports whether s is a hex color.
func ValidColor(s string) bool {
	return hexColorRegex.MatchString(s)
}

// CopySuffix is appended to the text of a duplicated piece.
const CopySuffix = " (Copy)"

// CopyText returns the text a duplicate of a piece with the given text gets.
func CopyText(text string) string {
	return text + CopySuffix
}
