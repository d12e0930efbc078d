package rules

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/access-form-extractor/constants"
	"github.com/joseph-ayodele/access-form-extractor/internal/schema"
)

var reSystemBox = regexp.MustCompile(`(?i)(Borj\s*-?\s*Pilotage|Qlik\s*View|Qlik\s*Sense|Data\s*Lake|IBM\s+Data\s*Stage)` + optionGap + `([` + boxGlyphs + `])`)

// resolveSystems collects the systems whose box is checked, canonical
// spelling, document order, each once. When no system box is found at all
// the field is not found; boxes that are all unchecked give an empty set.
func resolveSystems(text string) schema.Value {
	matches := reSystemBox.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return schema.Unresolved(schema.ReasonNotFound)
	}
	var picked []string
	for _, m := range matches {
		if !strings.ContainsAny(m[2], checkedGlyphs) {
			continue
		}
		if sys, ok := constants.CanonicalSystem(m[1]); ok {
			picked = append(picked, string(sys))
		}
	}
	return schema.ResolvedSet(picked)
}
