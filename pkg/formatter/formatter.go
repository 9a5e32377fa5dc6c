package formatter

import (
	"strconv"
	"strings"
)

// ComposeCaption joins a caption with its hashtag list the way the upload
// composers expect: caption text, a blank line, then space-separated tags.
// Tags are normalized to a single leading '#'.
func ComposeCaption(caption string, hashtags []string) string {
	tags := make([]string, 0, len(hashtags))
	for _, h := range hashtags {
		h = strings.TrimSpace(h)
		h = strings.TrimLeft(h, "#")
		if h == "" {
			continue
		}
		tags = append(tags, "#"+h)
	}

	caption = strings.TrimSpace(caption)
	if len(tags) == 0 {
		return caption
	}
	if caption == "" {
		return strings.Join(tags, " ")
	}
	return caption + "\n\n" + strings.Join(tags, " ")
}

// FormatNumber converts an integer to a string with commas as thousands separators.
// Example: 1234567 -> "1,234,567"
func FormatNumber(n int) string {
	s := strconv.Itoa(n)
	neg := false
	if n < 0 {
		neg = true
		s = s[1:]
	}

	var sb strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		sb.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(s[i : i+3])
	}

	if neg {
		return "-" + sb.String()
	}
	return sb.String()
}
