package pdftext

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reColonGap   = regexp.MustCompile(`:[ \t]{2,}`)
	reCellGap    = regexp.MustCompile(`[ \t]{3,}`)
	reMultiSpace = regexp.MustCompile(`[ \t]{2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reCellPipes  = regexp.MustCompile(`[ \t]*\|[ \t]*`)

	// "2. Contenu du formulaire", possibly with markdown bold around the
	// number and the title.
	rePreamble = regexp.MustCompile(`(?i)(?:\*\*)?\s*2\s*\.\s*(?:\*\*)?\s*(?:\*\*)?\s*Contenu\s+du\s+formulaire\s*(?:\*\*)?`)
)

var charFixes = strings.NewReplacer(
	"\u00a0", " ",
	"\u202f", " ",
	"\u2019", "'",
	"\u2018", "'",
	"\f", "\n\n",
)

// Normalize prepares extracted text for field matching. It keeps line
// breaks, turns wide horizontal gaps into " | " cell markers and collapses
// other whitespace noise. Gaps right after a colon are not cells: they
// separate a label from its value.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = norm.NFC.String(s)
	s = reCRLF.ReplaceAllString(s, "\n")
	s = charFixes.Replace(s)
	s = reTabs.ReplaceAllString(s, " ")
	s = reColonGap.ReplaceAllString(s, ": ")
	s = reCellPipes.ReplaceAllString(s, " | ")
	s = reCellGap.ReplaceAllString(s, " | ")
	s = reMultiSpace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	s = strings.Join(lines, "\n")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// SkipPreamble drops everything up to and including the first
// "2. Contenu du formulaire" heading. Without the heading the text is
// returned unchanged.
func SkipPreamble(s string) (string, bool) {
	loc := rePreamble.FindStringIndex(s)
	if loc == nil {
		return s, false
	}
	return strings.TrimSpace(s[loc[1]:]), true
}
