package query

import (
	"strings"
	"unicode"
)

// ParseFilterString splits a filter expression into invocations. Invocations are
// separated by "|" and each one is a name followed by its arguments. Arguments
// are whitespace separated words or quoted spans. A span is closed by the quote
// character that opened it; when that character never appears again, a span
// closed by the other quote character is kept literally, quotes included.
//
//	ParseFilterString(`find "a b" | kill`) == [][]string{{"find", "a b"}, {"kill"}}
//
// Parsing never fails. Empty input yields a single empty invocation.
func ParseFilterString(input string) [][]string {
	runes := []rune(input)
	result := [][]string{}
	current := []string{}

	var word strings.Builder
	inWord := false
	flush := func() {
		if inWord {
			current = append(current, word.String())
			word.Reset()
			inWord = false
		}
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '|':
			flush()
			result = append(result, current)
			current = []string{}
		case unicode.IsSpace(r):
			flush()
		case isQuote(r) && !inWord:
			end := closingQuote(runes, i+1, r)
			if end < 0 {
				word.WriteRune(r)
				inWord = true
				continue
			}
			if runes[end] == r {
				current = append(current, string(runes[i+1:end]))
			} else {
				current = append(current, string(runes[i:end+1]))
			}
			i = end
		default:
			word.WriteRune(r)
			inWord = true
		}
	}
	flush()
	return append(result, current)
}

func isQuote(r rune) bool {
	return r == '"' || r == '\''
}

// closingQuote returns the index of the next open quote, or failing that the
// index of the next quote character of either kind
func closingQuote(runes []rune, from int, open rune) int {
	for j := from; j < len(runes); j++ {
		if runes[j] == open {
			return j
		}
	}
	for j := from; j < len(runes); j++ {
		if isQuote(runes[j]) {
			return j
		}
	}
	return -1
}
