// Package composer merges generated post text with trend hashtags under a
// per-channel length budget.
package composer

import (
	"strings"
	"unicode/utf8"
)

// TagMarker is the prefix platforms use for hashtags
const TagMarker = "#"

// tag is a normalized hashtag that remembers whether the source string
// already carried the marker. Phase 1 trimming only drops tags that did not.
type tag struct {
	text      string
	hadMarker bool
}

// Normalize trims each tag, drops empty ones and prefixes the marker where it
// is missing. Tags that already start with the marker are returned unchanged
// apart from whitespace trimming.
func Normalize(tags []string) []string {
	norm := normalize(tags)
	out := make([]string, len(norm))
	for i, t := range norm {
		out[i] = t.text
	}
	return out
}

func normalize(tags []string) []tag {
	out := make([]tag, 0, len(tags))
	for _, raw := range tags {
		s := strings.TrimSpace(raw)
		if s == "" || s == TagMarker {
			continue
		}
		if strings.HasPrefix(s, TagMarker) {
			out = append(out, tag{text: s, hadMarker: true})
			continue
		}
		out = append(out, tag{text: TagMarker + s})
	}
	return out
}

// Length is the budget length of s, counted in code points.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}

// Compose appends normalized tags to base and trims the result to fit in
// maxLength characters. Marker-less tags are dropped first in their original
// order, then remaining tags from the end, and as a last resort the text
// itself is truncated. The result never exceeds maxLength.
func Compose(base string, tags []string, maxLength int) string {
	if maxLength <= 0 {
		return ""
	}

	base = strings.TrimRight(base, " \t\r\n")
	kept := normalize(tags)

	// Lengths are tracked incrementally: every kept tag costs its own length
	// plus one separating space.
	baseLen := Length(base)
	tagsLen := 0
	for _, t := range kept {
		tagsLen += 1 + Length(t.text)
	}
	fits := func() bool {
		total := baseLen + tagsLen
		if base == "" && len(kept) > 0 {
			total-- // no separator before the first tag
		}
		return total <= maxLength
	}

	// Phase 1
	for i := 0; i < len(kept) && !fits(); {
		if kept[i].hadMarker {
			i++
			continue
		}
		tagsLen -= 1 + Length(kept[i].text)
		kept = append(kept[:i], kept[i+1:]...)
	}

	// Phase 2
	for len(kept) > 0 && !fits() {
		last := kept[len(kept)-1]
		tagsLen -= 1 + Length(last.text)
		kept = kept[:len(kept)-1]
	}

	if len(kept) == 0 {
		// Phase 3
		return truncate(base, maxLength)
	}

	var sb strings.Builder
	sb.WriteString(base)
	for _, t := range kept {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.text)
	}
	return sb.String()
}

// truncate cuts s to at most n code points
func truncate(s string, n int) string {
	if Length(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
