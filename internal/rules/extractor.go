package rules

import (
	"log/slog"

	"github.com/joseph-ayodele/access-form-extractor/internal/schema"
)

// Extractor is the deterministic pass: text rules, checkbox rules and the
// systems rule over normalized form text. Signature zones have no textual
// trace and are always left unresolved here. An Extractor holds only
// compiled patterns and is safe for concurrent use.
type Extractor struct {
	text   []compiledRule
	boxes  []checkboxRule
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		text:   compileTextRules(textRules),
		boxes:  compileCheckboxRules(),
		logger: logger,
	}
}

// Extract returns one value per canonical field. It never fails: a field
// whose pattern does not match is unresolved.
func (e *Extractor) Extract(text string) schema.Result {
	res := make(schema.Result, len(schema.Names()))
	for _, name := range schema.Names() {
		res[name] = schema.Unresolved(schema.ReasonNotFound)
	}
	for _, r := range e.text {
		res[r.field] = r.apply(text)
	}
	for field, v := range resolveCheckboxes(text, e.boxes) {
		res[field] = v
	}
	res[schema.AccesSysteme] = resolveSystems(text)

	e.logger.Debug("rules.extract.done",
		"resolved", len(res.Resolved()),
		"unresolved", res.Unresolved(),
	)
	return res
}
