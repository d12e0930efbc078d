// Package merge combines the deterministic and inferred extraction results
// into one validated record.
package merge

import (
	"encoding/json"
	"fmt"

	"github.com/joseph-ayodele/access-form-extractor/constants"
	"github.com/joseph-ayodele/access-form-extractor/internal/common"
	"github.com/joseph-ayodele/access-form-extractor/internal/schema"
)

// Merge builds the final record. A deterministic value that is resolved is
// kept as is; an unresolved one is replaced by the inferred value when that
// value is resolved. Fields neither phase produced become unresolved.
// The record is then checked value by value and against the canonical JSON
// Schema; any failure is an ErrValidation and no record is returned.
func Merge(det schema.Result, inferred map[string]schema.Value) (schema.Record, error) {
	values := make(map[string]schema.Value, len(schema.Canonical()))
	for _, d := range schema.Canonical() {
		v := det.Get(d.Name)
		if !v.IsResolved() {
			if iv, ok := inferred[d.Name]; ok && iv.IsResolved() {
				v = iv
			}
		}
		values[d.Name] = v
	}

	if err := checkValues(values); err != nil {
		return schema.Record{}, common.NewAppError(common.CodeValidation, "merged record", err)
	}

	rec, err := schema.NewRecord(values)
	if err != nil {
		return schema.Record{}, common.NewAppError(common.CodeValidation, "merged record", fmt.Errorf("%w: %w", common.ErrValidation, err))
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return schema.Record{}, common.NewAppError(common.CodeValidation, "encode record", fmt.Errorf("%w: %w", common.ErrValidation, err))
	}
	if err := schema.ValidateRecord(data); err != nil {
		return schema.Record{}, common.NewAppError(common.CodeValidation, "merged record", fmt.Errorf("%w: %w", common.ErrValidation, err))
	}
	return rec, nil
}

// checkValues applies the per field value domains: checkbox answers,
// signature markers and known system names.
func checkValues(values map[string]schema.Value) error {
	v := common.NewValidator()
	for _, d := range schema.Canonical() {
		val := values[d.Name]
		if !val.IsResolved() {
			continue
		}
		switch {
		case d.Kind == schema.KindStringSet:
			if !val.IsSet() {
				v.Field(d.Alias, val.Text(), kindMismatch)
				continue
			}
			if d.Name == schema.AccesSysteme {
				v.Field(d.Alias, val.Items(), common.OneOf(constants.SystemsAsStrings()...))
			}
		case val.IsSet():
			v.Field(d.Alias, val.Items(), kindMismatch)
		case schema.IsSignature(d.Name):
			v.Field(d.Alias, val.Text(), common.OneOf(constants.SignaturePresent, constants.SignatureAbsent))
		case schema.IsCheckbox(d.Name):
			v.Field(d.Alias, val.Text(), common.OneOf(constants.Oui, constants.Non))
		}
	}
	return v.Error()
}

func kindMismatch(field string, value any) *common.ValidationError {
	return &common.ValidationError{Field: field, Value: value, Message: "has the wrong shape"}
}
