package ui

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// truncateRunesHelper truncates a string to max visual width (cells), adding suffix if needed.
// Uses go-runewidth to handle wide characters correctly.
func truncateRunesHelper(s string, maxWidth int, suffix string) string {
	if maxWidth <= 0 {
		return ""
	}

	width := runewidth.StringWidth(s)
	if width <= maxWidth {
		return s
	}

	suffixWidth := runewidth.StringWidth(suffix)
	if suffixWidth > maxWidth {
		// Even suffix is too wide, truncate suffix
		return runewidth.Truncate(suffix, maxWidth, "")
	}

	targetWidth := maxWidth - suffixWidth
	return runewidth.Truncate(s, targetWidth, "") + suffix
}

// padRight pads s with spaces to exactly width cells.
func padRight(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

type span struct{ start, end int } // byte offsets

// matchSpans finds the non-overlapping case-insensitive occurrences of needle
// in s. Offsets are byte offsets into s.
func matchSpans(s, needle string) []span {
	if needle == "" || s == "" {
		return nil
	}
	n := utf8.RuneCountInString(needle)
	var out []span
	for i := 0; i < len(s); {
		end, count := i, 0
		for end < len(s) && count < n {
			_, size := utf8.DecodeRuneInString(s[end:])
			end += size
			count++
		}
		if count < n {
			break
		}
		if strings.EqualFold(s[i:end], needle) {
			out = append(out, span{i, end})
			i = end
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return out
}

// highlight renders s with base and every match of needle with match.
func highlight(s, needle string, base, match lipgloss.Style) string {
	spans := matchSpans(s, needle)
	if len(spans) == 0 {
		return base.Render(s)
	}
	var b strings.Builder
	last := 0
	for _, sp := range spans {
		if sp.start > last {
			b.WriteString(base.Render(s[last:sp.start]))
		}
		b.WriteString(match.Render(s[sp.start:sp.end]))
		last = sp.end
	}
	if last < len(s) {
		b.WriteString(base.Render(s[last:]))
	}
	return b.String()
}
