package llm

import (
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/joseph-ayodele/access-form-extractor/constants"
	"github.com/joseph-ayodele/access-form-extractor/internal/schema"
)

var reItemSep = regexp.MustCompile(`\s*[,;\n]\s*`)

// Casers are stateful, so each call gets its own.
func lowerFR(s string) string { return cases.Lower(language.French).String(s) }

// SanitizeInferred prepares a model answer for strict validation against the
// reduced schema of defs:
//   - unknown keys, null, empty and placeholder values are dropped;
//   - numbers and booleans become strings for text fields;
//   - a comma separated string becomes a list for set fields;
//   - checkbox, signature and system values are mapped to their canonical
//     spelling, unknown spellings dropped.
//
// It returns the cleaned document and what was dropped.
func SanitizeInferred(doc []byte, defs []schema.FieldDefinition) ([]byte, []string, error) {
	m, err := decodeObject(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	wanted := make(map[string]schema.FieldDefinition, len(defs))
	for _, d := range defs {
		wanted[d.Name] = d
	}

	var dropped []string
	for k := range maps.Clone(m) {
		d, ok := wanted[k]
		if !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
			continue
		}
		v, reason := sanitizeValue(d, m[k])
		if reason != "" {
			delete(m, k)
			dropped = append(dropped, k+"("+reason+")")
			continue
		}
		m[k] = v
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, dropped, nil
}

// sanitizeValue returns the cleaned value, or a non-empty reason to drop it.
func sanitizeValue(d schema.FieldDefinition, v any) (any, string) {
	if d.Kind == schema.KindStringSet {
		var items []string
		switch t := v.(type) {
		case nil:
			return nil, "null"
		case string:
			items = reItemSep.Split(strings.TrimSpace(t), -1)
		case []any:
			for _, it := range t {
				if s, ok := scalarText(it); ok {
					items = append(items, s)
				}
			}
		default:
			return nil, "type"
		}
		out := make([]any, 0, len(items))
		seen := map[string]bool{}
		for _, it := range items {
			it = strings.TrimSpace(it)
			if isPlaceholder(it) {
				continue
			}
			if d.Name == schema.AccesSysteme {
				sys, ok := constants.CanonicalSystem(it)
				if !ok {
					continue
				}
				it = string(sys)
			}
			if seen[it] {
				continue
			}
			seen[it] = true
			out = append(out, it)
		}
		if len(out) == 0 {
			return nil, "empty"
		}
		return out, ""
	}

	if v == nil {
		return nil, "null"
	}
	s, ok := scalarText(v)
	if !ok {
		return nil, "type"
	}
	s = strings.Join(strings.Fields(s), " ")
	if isPlaceholder(s) {
		return nil, "empty"
	}
	switch {
	case schema.IsSignature(d.Name):
		if s = canonicalSignature(s); s == "" {
			return nil, "value"
		}
	case schema.IsCheckbox(d.Name):
		if s = canonicalAnswer(s); s == "" {
			return nil, "value"
		}
	}
	return s, ""
}

func scalarText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func isPlaceholder(s string) bool {
	switch lowerFR(strings.TrimSpace(s)) {
	case "", "n/a", "na", "null", "none", "-":
		return true
	}
	return false
}

func canonicalSignature(s string) string {
	switch lowerFR(s) {
	case "présente", "presente", "présent", "present", "oui", "signée", "signee", "signé", "signe", "true":
		return constants.SignaturePresent
	case "absente", "absent", "non", "vide", "false":
		return constants.SignatureAbsent
	}
	return ""
}

func canonicalAnswer(s string) string {
	switch lowerFR(s) {
	case "oui", "yes", "true", "coché", "coche":
		return constants.Oui
	case "non", "no", "false":
		return constants.Non
	}
	return ""
}
