package push

import "strings"

// maskedTextMaxLength caps how much of the original text a masked value
// can reveal about its length.
const maskedTextMaxLength = 15

// Mask hides all but the last keep characters of text behind 'x'
// characters, for logging device tokens without leaking them. Text
// longer than 15 characters is first truncated to its last 15.
func Mask(text string, keep int) string {
	if text == "" {
		return text
	}

	masked := text
	if len(masked) > maskedTextMaxLength {
		masked = masked[len(masked)-maskedTextMaxLength:]
	}

	maskLen := len(masked) - keep
	if maskLen < 0 {
		maskLen = 0
	}

	return strings.Repeat("x", maskLen) + masked[maskLen:]
}
