// Package redact scrubs literal values out of SQL text before it is ever
// handed to a logger, so bound parameters never end up in log output.
package redact

import "strings"

// SQL walks text once and replaces every string literal ('...') and every
// standalone numeric literal with a placeholder, leaving everything else
// (keywords, identifiers, punctuation, whitespace, $N-style bind markers)
// untouched. Unlike a query normalizer, this has no need to produce a
// canonical shape for grouping similar statements, so it does not collapse
// whitespace or otherwise reformat anything around the values it removes:
// the only goal is that a literal never reaches a log line.
func SQL(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))

	i := 0
	for i < len(text) {
		switch {
		case text[i] == '\'':
			i = skipStringLiteral(&b, text, i)
		case isDigit(text[i]) && !precededByIdentChar(text, i):
			i = skipNumericLiteral(&b, text, i)
		default:
			b.WriteByte(text[i])
			i++
		}
	}

	return b.String()
}

// skipStringLiteral consumes a '...'-quoted literal starting at pos
// (doubled '' is the standard SQL escape for a literal quote) and writes a
// single placeholder in its place.
func skipStringLiteral(b *strings.Builder, text string, pos int) int {
	j := pos + 1
	for j < len(text) {
		if text[j] == '\'' {
			if j+1 < len(text) && text[j+1] == '\'' {
				j += 2
				continue
			}
			j++
			break
		}
		j++
	}
	b.WriteString("'?'")
	return j
}

// skipNumericLiteral consumes a run of digits and '.' starting at pos and
// writes a single placeholder in its place.
func skipNumericLiteral(b *strings.Builder, text string, pos int) int {
	j := pos
	for j < len(text) && (isDigit(text[j]) || text[j] == '.') {
		j++
	}
	b.WriteByte('?')
	return j
}

// precededByIdentChar reports whether the byte before pos rules out the
// digit at pos as the start of a standalone numeric literal: it may be
// part of an identifier instead (the "2" in "col2"), a continuation of a
// digit run already passed through (the second "2" in "col22"), or a
// $N-style bind marker ("$1"), which must be left untouched rather than
// collapsed to "$?".
func precededByIdentChar(text string, pos int) bool {
	if pos == 0 {
		return false
	}
	c := text[pos-1]
	return isDigit(c) || isAlpha(c) || c == '_' || c == '$'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
