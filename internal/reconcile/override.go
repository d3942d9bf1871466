package reconcile

import (
	"github.com/joseph-ayodele/policy-intake/internal/policy"
)

// Override returns fields with f replaced by an operator value. Manual values always carry
// full confidence; their validity comes from the field's own validator.
func (r *Reconciler) Override(fields Fields, f policy.Field, v policy.Value) (Fields, MappedField) {
	if _, ok := policy.Lookup(f); !ok {
		panic("reconcile: override of unknown field " + string(f))
	}
	mf := MappedField{
		Extracted:  v.String(),
		Value:      v,
		Confidence: 100,
		Tier:       TierHigh,
		Valid:      r.Valid(f, v),
		Source:     SourceManual,
	}
	out := fields.Clone()
	out[f] = mf
	r.logger.Debug("reconcile.override", "field", f, "valid", mf.Valid)
	return out, mf
}

// ClearOverride resets f to its empty placeholder so the next merge may populate it again.
func (r *Reconciler) ClearOverride(fields Fields, f policy.Field) (Fields, MappedField) {
	spec, ok := policy.Lookup(f)
	if !ok {
		panic("reconcile: clear of unknown field " + string(f))
	}
	mf := r.emptyField(spec)
	out := fields.Clone()
	out[f] = mf
	return out, mf
}

// MergeInto lays a fresh reconcile result over the current fields. Fields whose current
// source is manual are kept untouched; all others take the new result.
func MergeInto(current Fields, draft policy.Draft, res Result) (policy.Draft, Fields) {
	merged := make(Fields, len(res.Mapped))
	for _, name := range policy.Fields() {
		if cur, ok := current[name]; ok && cur.Source == SourceManual {
			merged[name] = cur
			continue
		}
		merged[name] = res.Mapped[name]
	}
	return merged.ApplyTo(draft), merged
}
