package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/access-form-extractor/constants"
)

// Record is a complete extraction result: one value for every canonical
// field, no more. Build it with NewRecord.
type Record struct {
	values map[string]Value
}

// NewRecord builds a Record from values keyed by field name. It fails when a
// canonical field is missing or an unknown field is present.
func NewRecord(values map[string]Value) (Record, error) {
	var missing, unknown []string
	for _, d := range canonical {
		if _, ok := values[d.Name]; !ok {
			missing = append(missing, d.Name)
		}
	}
	for name := range values {
		if _, ok := byName[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(missing) > 0 || len(unknown) > 0 {
		return Record{}, fmt.Errorf("record: missing fields %v, unknown fields %v", missing, unknown)
	}
	cp := make(map[string]Value, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return Record{values: cp}, nil
}

// Get returns the value for a field name.
func (r Record) Get(name string) Value {
	if v, ok := r.values[name]; ok {
		return v
	}
	return Unresolved(ReasonNotFound)
}

func (r Record) IsZero() bool { return r.values == nil }

// Map returns the alias keyed external form: strings, the placeholder, or
// []string for set fields.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(canonical))
	for _, d := range canonical {
		out[d.Alias] = r.Get(d.Name).external(d.Kind)
	}
	return out
}

// Row renders the record as one table row in canonical column order.
func (r Record) Row() []string {
	out := make([]string, len(canonical))
	for i, d := range canonical {
		out[i] = r.Get(d.Name).Text()
	}
	return out
}

// MarshalJSON writes the alias keyed object in canonical field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range canonical {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(d.Alias)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.Get(d.Name).external(d.Kind))
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the alias keyed form back. Placeholder strings and
// empty sets become unresolved values.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("record: decode: %w", err)
	}
	values := make(map[string]Value, len(canonical))
	for alias, msg := range raw {
		d, ok := ByAlias(alias)
		if !ok {
			return fmt.Errorf("record: unknown field %q", alias)
		}
		switch d.Kind {
		case KindStringSet:
			var items []string
			if err := json.Unmarshal(msg, &items); err != nil {
				return fmt.Errorf("record: field %q: %w", alias, err)
			}
			if len(items) == 0 {
				values[d.Name] = Unresolved(ReasonNotFound)
			} else {
				values[d.Name] = ResolvedSet(items)
			}
		default:
			var s string
			if err := json.Unmarshal(msg, &s); err != nil {
				return fmt.Errorf("record: field %q: %w", alias, err)
			}
			if strings.TrimSpace(s) == constants.NotAvailable {
				values[d.Name] = Unresolved(ReasonNotFound)
			} else {
				values[d.Name] = Resolved(s)
			}
		}
	}
	rec, err := NewRecord(values)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}
