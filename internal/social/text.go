package social

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	FacebookMaxLength  = 63206
	InstagramMaxLength = 2200
	TwitterMaxLength   = 280
	LinkedInMaxLength  = 3000
	YouTubeMaxLength   = 5000
)

// MaxLength returns the post text limit for a platform.
func MaxLength(p Platform) int {
	switch p {
	case Facebook:
		return FacebookMaxLength
	case Instagram:
		return InstagramMaxLength
	case Twitter:
		return TwitterMaxLength
	case LinkedIn:
		return LinkedInMaxLength
	case YouTube:
		return YouTubeMaxLength
	}
	return 0
}

// FitsInLimit checks if text fits within limit characters.
func FitsInLimit(text string, limit int) bool {
	return utf8.RuneCountInString(text) <= limit
}

// CheckLength rejects text longer than the platform allows.
func CheckLength(p Platform, text string) error {
	limit := MaxLength(p)
	if limit > 0 && !FitsInLimit(text, limit) {
		return fmt.Errorf("%w: text is %d characters, %s allows %d",
			ErrInvalidRequest, utf8.RuneCountInString(text), p, limit)
	}
	return nil
}

// Truncate shortens text to at most limit characters, cutting at a word
// boundary when one is reasonably close and appending "...".
func Truncate(text string, limit int) string {
	if FitsInLimit(text, limit) {
		return text
	}
	if limit <= 3 {
		return string([]rune(text)[:limit])
	}

	available := limit - 3
	truncated := string([]rune(text)[:available])

	// Only use word boundary if not too far back
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > len(truncated)/2 {
		truncated = truncated[:lastSpace]
	}

	return strings.TrimRight(truncated, " .,;:!?") + "..."
}
