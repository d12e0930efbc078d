package rules

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/access-form-extractor/constants"
	"github.com/joseph-ayodele/access-form-extractor/internal/schema"
)

var (
	reBreaks = regexp.MustCompile(`(?i)<br\s*/?>|\n`)
	reFiller = regexp.MustCompile(`\.{2,}|…|\|`)
	reSpaces = regexp.MustCompile(`[\s\p{Zs}]+`)
)

// CleanValue turns a captured region into a field value: line breaks and
// filler (dot leaders, ellipses, cell pipes) become spaces, edge noise
// (whitespace, ':', '*', '_') is trimmed and inner whitespace collapsed.
// It never returns "": an empty result is the N/A placeholder.
// CleanValue(CleanValue(s)) == CleanValue(s).
func CleanValue(s string) string {
	// a replacement can join the halves of a new "<br >" or leader,
	// so repeat until nothing changes
	for {
		next := reFiller.ReplaceAllString(s, " ")
		next = reBreaks.ReplaceAllString(next, " ")
		next = reSpaces.ReplaceAllString(next, " ")
		if next == s {
			break
		}
		s = next
	}
	s = strings.TrimFunc(s, isEdgeNoise)
	if s == "" {
		return constants.NotAvailable
	}
	return s
}

// Clean is CleanValue lifted to a field value: the placeholder becomes an
// unresolved blank.
func Clean(s string) schema.Value {
	return schema.Resolved(CleanValue(s))
}

func isEdgeNoise(r rune) bool {
	switch r {
	case ':', '*', '_':
		return true
	}
	return unicode.IsSpace(r)
}
