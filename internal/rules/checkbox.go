package rules

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/access-form-extractor/constants"
	"github.com/joseph-ayodele/access-form-extractor/internal/schema"
)

// checkboxWindow bounds how far after a label its Oui/Non boxes may appear.
const checkboxWindow = 160

const (
	checkedGlyphs = "☑☒"
	boxGlyphs     = "☑☒☐"
)

// optionGap sits between an option and its box: a colon, or the " | " a
// layout renderer leaves for the wide gap between them.
const optionGap = `\s*:?\s*\|?\s*`

var (
	reOuiBox = regexp.MustCompile(`(?i)\bOui` + optionGap + `([` + boxGlyphs + `])`)
	reNonBox = regexp.MustCompile(`(?i)\bNon` + optionGap + `([` + boxGlyphs + `])`)
)

type checkboxRule struct {
	field string
	label *regexp.Regexp
}

var checkboxLabels = []struct{ field, label string }{
	{schema.DonneesPersonnelles, `données\s+à\s+caractère\s+personnel`},
	{schema.DonneesAnonymisees, `doivent-elles\s+être\s+anonymisées\s*\?`},
	{schema.FormationBusinessObject, `Formation\s+Business\s+Object\s*:`},
	{schema.FormationQlikView, `Formation\s+QlikView\s*:`},
	{schema.FormationSQL, `Formation\s+SQL\s*:`},
}

func compileCheckboxRules() []checkboxRule {
	out := make([]checkboxRule, 0, len(checkboxLabels))
	for _, c := range checkboxLabels {
		out = append(out, checkboxRule{field: c.field, label: regexp.MustCompile(`(?is)` + c.label)})
	}
	return out
}

// resolveCheckboxes applies the Oui/Non policy to every checkbox field.
//
// For each occurrence of a label, the window runs from the end of the label
// for at most checkboxWindow runes, cut at the start of the next checkbox
// label. The first occurrence whose window holds a box decides:
//   - Oui box checked: "Oui", even when Non is checked too;
//   - any other combination of boxes, including neither checked: "Non".
//
// A label without boxes in any window is blank; a missing label is not found.
func resolveCheckboxes(text string, rules []checkboxRule) map[string]schema.Value {
	var starts []int
	for _, r := range rules {
		for _, loc := range r.label.FindAllStringIndex(text, -1) {
			starts = append(starts, loc[0])
		}
	}

	out := make(map[string]schema.Value, len(rules))
	for _, r := range rules {
		locs := r.label.FindAllStringIndex(text, -1)
		if len(locs) == 0 {
			out[r.field] = schema.Unresolved(schema.ReasonNotFound)
			continue
		}
		v := schema.Unresolved(schema.ReasonBlank)
		for _, loc := range locs {
			if answer, ok := readBoxes(window(text, loc[1], starts)); ok {
				v = schema.Resolved(answer)
				break
			}
		}
		out[r.field] = v
	}
	return out
}

func readBoxes(w string) (string, bool) {
	oui := reOuiBox.FindStringSubmatch(w)
	non := reNonBox.FindStringSubmatch(w)
	switch {
	case oui != nil && strings.ContainsAny(oui[1], checkedGlyphs):
		return constants.Oui, true
	case oui != nil || non != nil:
		return constants.Non, true
	default:
		return "", false
	}
}

// window returns text[from:] limited to checkboxWindow runes and cut at the
// first label start after from.
func window(text string, from int, labelStarts []int) string {
	end := len(text)
	for _, s := range labelStarts {
		if s >= from && s < end {
			end = s
		}
	}
	n := 0
	for i := range text[from:end] {
		if n == checkboxWindow {
			end = from + i
			break
		}
		n++
	}
	return text[from:end]
}
