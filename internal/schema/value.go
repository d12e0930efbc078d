package schema

import (
	"slices"
	"strings"

	"github.com/joseph-ayodele/access-form-extractor/constants"
)

// Reason explains why a field has no value.
type Reason int

const (
	ReasonNone Reason = iota
	// ReasonNotFound means the label or pattern is absent from the document.
	ReasonNotFound
	// ReasonBlank means the label is present with nothing usable next to it.
	ReasonBlank
)

func (r Reason) String() string {
	switch r {
	case ReasonNotFound:
		return "not_found"
	case ReasonBlank:
		return "blank"
	default:
		return "none"
	}
}

// Value is the per-field result of an extraction phase. It is either a
// resolved text, a resolved ordered set of texts, or unresolved with a
// reason. The zero Value is unresolved (not found).
type Value struct {
	resolved bool
	set      bool
	text     string
	items    []string
	reason   Reason
}

// Resolved returns a text value. Empty text and the placeholder are
// treated as blank, so a resolved Value never carries either.
func Resolved(text string) Value {
	text = strings.TrimSpace(text)
	if text == "" || text == constants.NotAvailable {
		return Unresolved(ReasonBlank)
	}
	return Value{resolved: true, text: text}
}

// ResolvedSet returns a set value. Items are trimmed, blanks and duplicates
// dropped, first occurrence order kept. An empty set is still resolved.
func ResolvedSet(items []string) Value {
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" || it == constants.NotAvailable || slices.Contains(out, it) {
			continue
		}
		out = append(out, it)
	}
	return Value{resolved: true, set: true, items: out}
}

func Unresolved(reason Reason) Value {
	if reason == ReasonNone {
		reason = ReasonNotFound
	}
	return Value{reason: reason}
}

func (v Value) IsResolved() bool { return v.resolved }
func (v Value) IsSet() bool      { return v.set }

// Reason is ReasonNone for resolved values.
func (v Value) Reason() Reason {
	if v.resolved {
		return ReasonNone
	}
	if v.reason == ReasonNone {
		return ReasonNotFound
	}
	return v.reason
}

// Text renders the value as a single string. Sets are joined with ", ",
// unresolved values render as the placeholder.
func (v Value) Text() string {
	switch {
	case !v.resolved:
		return constants.NotAvailable
	case v.set:
		return strings.Join(v.items, ", ")
	default:
		return v.text
	}
}

// Items returns a copy of the set items, or nil for a text value.
func (v Value) Items() []string {
	if !v.set {
		return nil
	}
	return slices.Clone(v.items)
}

func (v Value) String() string { return v.Text() }

// Equal compares resolution state and content. Unresolved values are equal
// regardless of reason.
func (v Value) Equal(o Value) bool {
	if v.resolved != o.resolved {
		return false
	}
	if !v.resolved {
		return true
	}
	if v.set != o.set {
		return false
	}
	if v.set {
		return slices.Equal(v.items, o.items)
	}
	return v.text == o.text
}

// external is the JSON form of the value for a field of the given kind.
// Resolved values keep their own shape so a mismatch reaches validation.
func (v Value) external(kind Kind) any {
	if !v.resolved {
		if kind == KindStringSet {
			return []string{}
		}
		return constants.NotAvailable
	}
	if v.set {
		return slices.Clone(v.items)
	}
	return v.text
}

// Result is the partial output of one extraction phase, keyed by field name.
type Result map[string]Value

// Get returns the value for name, unresolved when absent.
func (r Result) Get(name string) Value {
	if v, ok := r[name]; ok {
		return v
	}
	return Unresolved(ReasonNotFound)
}

// Unresolved lists, in form order, the canonical fields that are absent
// from r or unresolved in it.
func (r Result) Unresolved() []string {
	var out []string
	for _, d := range canonical {
		if !r.Get(d.Name).IsResolved() {
			out = append(out, d.Name)
		}
	}
	return out
}

// Resolved lists, in form order, the canonical fields resolved in r.
func (r Result) Resolved() []string {
	var out []string
	for _, d := range canonical {
		if r.Get(d.Name).IsResolved() {
			out = append(out, d.Name)
		}
	}
	return out
}

func (r Result) Clone() Result {
	out := make(Result, len(r))
	for k, v := range r {
		if v.set {
			v.items = slices.Clone(v.items)
		}
		out[k] = v
	}
	return out
}
