package text

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Normalize cleans raw extracted text before analysis. It never fails; empty or
// unusable input simply comes back empty and is rejected by later length checks.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	s := raw
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = cleanLine(line)
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// cleanLine strips control and zero-width characters and collapses runs of
// horizontal whitespace into a single space.
func cleanLine(line string) string {
	var b strings.Builder
	b.Grow(len(line))
	space := false
	for _, r := range line {
		switch {
		case r == '\t' || r == ' ' || (unicode.IsSpace(r) && r != '\n'):
			space = true
			continue
		case isInvisible(r):
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

func isInvisible(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
		return true
	}
	return unicode.IsControl(r)
}

// Length reports the length of s in characters (runes), the unit every bound in
// the analysis pipeline is expressed in.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}

// Words counts whitespace separated words.
func Words(s string) int {
	return len(strings.Fields(s))
}
