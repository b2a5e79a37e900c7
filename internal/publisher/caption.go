package publisher

import "strings"

const truncationMarker = "…"

// ComposeCaption prepends mentions and appends hashtags to caption, then
// truncates the result to maxLen runes. A truncated caption ends with a
// visible marker. maxLen <= 0 disables truncation.
func ComposeCaption(caption string, hashtags, mentions []string, maxLen int) string {
	var parts []string

	if m := joinTagged(mentions, "@"); m != "" {
		parts = append(parts, m)
	}
	if c := strings.TrimSpace(caption); c != "" {
		parts = append(parts, c)
	}
	out := strings.Join(parts, " ")

	if h := joinTagged(hashtags, "#"); h != "" {
		if out != "" {
			out += "\n\n"
		}
		out += h
	}

	return truncate(out, maxLen)
}

func joinTagged(items []string, prefix string) string {
	tagged := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		item = strings.TrimLeft(item, prefix)
		if item == "" {
			continue
		}
		tagged = append(tagged, prefix+item)
	}
	return strings.Join(tagged, " ")
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	marker := []rune(truncationMarker)
	if maxLen <= len(marker) {
		return string(r[:maxLen])
	}
	return strings.TrimRightFunc(string(r[:maxLen-len(marker)]), isSpace) + truncationMarker
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t'
}
