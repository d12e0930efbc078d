package rules

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/access-form-extractor/internal/schema"
)

// Rule captures the text between a label and the first of its terminators.
// Label, Sep and Terms are RE2 fragments; matching is case-insensitive and
// '.' spans lines.
type Rule struct {
	Field string
	Label string
	Sep   string   // between label and value; defaults to `\s*:\s*`
	Terms []string // boundary tokens, usually the next label
}

const defaultSep = `\s*:\s*`

// compile builds `label sep (.*?) (?:term|term...)`. The terminator is
// consumed; each rule runs independently so this has no effect on others.
func (r Rule) compile() *regexp.Regexp {
	sep := r.Sep
	if sep == "" {
		sep = defaultSep
	}
	return regexp.MustCompile(`(?is)` + r.Label + sep + `(.*?)(?:` + strings.Join(r.Terms, "|") + `)`)
}

// Identity block labels. The block is a two column table, so a cell can be
// followed by the cell beside it (" | "), by the next row, or by any other
// label of the block depending on the renderer.
var identityLabels = []struct{ field, label string }{
	{schema.NomEtPrenom, `Nom\s+et\s+Prénom`},
	{schema.Email, `E-?mail`},
	{schema.Fonction, `Fonction`},
	{schema.ResponsableHierarchique, `Responsable\s+hiérarchique`},
	{schema.Matricule, `Matricule`},
	{schema.EntiteN, `Entité\s+N`},
	{schema.EntiteNPlus2, `Entité\s+N\s*\+\s*2`},
}

// identityRules ends every cell at the cell separator, a blank line or the
// label of any other cell of the block.
func identityRules() []Rule {
	out := make([]Rule, 0, len(identityLabels))
	for _, c := range identityLabels {
		terms := []string{`\|`, `\n\s*\n`}
		for _, o := range identityLabels {
			if o.field != c.field {
				terms = append(terms, o.label+`\s*:`)
			}
		}
		out = append(out, Rule{Field: c.field, Label: c.label, Terms: terms})
	}
	return out
}

// textRules tracks the layout of the access request form.
var textRules = append(identityRules(), []Rule{
	{Field: schema.SourceDeDonnees, Label: `à\s+préciser`, Terms: []string{`Données\s*/\s*Indicateurs\s*/\s*Familles`}},
	{Field: schema.PerimetreDeDonnees, Label: `Décrire\s+le\s+périmètre\s+de\s+données\s*\(.*?\)`, Sep: `\s*:?\s*`, Terms: []string{`Le\s+périmètre\s+de\s+données\s+demandé`}},
	{Field: schema.FamilleDeDonnees, Label: `piloter\s*/\s*manipuler`, Terms: []string{`Décrire\s+le\s+périmètre\s+de\s+données`}},
	{Field: schema.FinaliteDeBesoin, Label: `demande\s+d['’]\s*accès`, Terms: []string{`Commentaires\s+et\s+informations\s+complémentaires`}},
	{Field: schema.Commentaires, Label: `Commentaires\s+et\s+informations\s+complémentaires`, Terms: []string{`[AÀ]\s+quel\s+système\s+souhaitez-vous\s+avoir\s+accès`}},
	{Field: schema.ProfilAAffecter, Label: `Profil\s+ou\s+layer\(s\)\s+à\s+affecter.*?Fonctionnelle\)`, Sep: `\s*:?\s*`, Terms: []string{`4\.`}},
}...)

type compiledRule struct {
	field string
	re    *regexp.Regexp
}

func compileTextRules(rules []Rule) []compiledRule {
	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, compiledRule{field: r.Field, re: r.compile()})
	}
	return out
}

func (c compiledRule) apply(text string) schema.Value {
	m := c.re.FindStringSubmatch(text)
	if m == nil {
		return schema.Unresolved(schema.ReasonNotFound)
	}
	return Clean(m[1])
}
