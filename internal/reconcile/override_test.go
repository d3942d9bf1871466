package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/policy-intake/internal/docai"
	"github.com/joseph-ayodele/policy-intake/internal/policy"
)

func TestOverride(t *testing.T) {
	r := newTestReconciler()
	res := r.Reconcile([]docai.ExtractedField{field("numero_poliza", "AB-12345", 0.55)})

	fields, mf := r.Override(res.Mapped, policy.NumeroPoliza, policy.Text("ZX-999"))
	assert.Equal(t, SourceManual, mf.Source)
	assert.Equal(t, 100, mf.Confidence)
	assert.Equal(t, TierHigh, mf.Tier)
	assert.False(t, mf.RequiresReview)
	assert.True(t, mf.Valid)
	assert.Equal(t, "ZX-999", fields[policy.NumeroPoliza].Value.Text)

	// the input map is not modified
	assert.Equal(t, SourceAI, res.Mapped[policy.NumeroPoliza].Source)

	_, bad := r.Override(res.Mapped, policy.Documento, policy.Text("12345673"))
	assert.False(t, bad.Valid)
	assert.Equal(t, SourceManual, bad.Source)
}

func TestOverrideSurvivesReconcile(t *testing.T) {
	r := newTestReconciler()
	in := []docai.ExtractedField{
		field("numero_poliza", "AB-12345", 0.95),
		field("asegurado", "ANA PEREZ", 0.95),
	}
	first := r.Reconcile(in)
	fields, _ := r.Override(first.Mapped, policy.NumeroPoliza, policy.Text("MANUAL-1"))
	draft := fields.ApplyTo(first.Draft)

	draft, fields = MergeInto(fields, draft, r.Reconcile(in))
	assert.Equal(t, "MANUAL-1", draft.Get(policy.NumeroPoliza).Text)
	assert.Equal(t, SourceManual, fields[policy.NumeroPoliza].Source)
	assert.Equal(t, "ANA PEREZ", draft.Get(policy.Asegurado).Text)

	fields, cleared := r.ClearOverride(fields, policy.NumeroPoliza)
	assert.Equal(t, SourceCalculated, cleared.Source)
	assert.True(t, cleared.Value.IsEmpty())

	draft, fields = MergeInto(fields, fields.ApplyTo(draft), r.Reconcile(in))
	assert.Equal(t, "AB-12345", draft.Get(policy.NumeroPoliza).Text)
	assert.Equal(t, SourceAI, fields[policy.NumeroPoliza].Source)
}

func TestMergeIntoKeepsContext(t *testing.T) {
	r := newTestReconciler()
	draft := policy.NewDraft(policy.Context{ClientID: "c1", CompanyID: "co", SectionID: "s"})
	out, fields := MergeInto(nil, draft, r.Reconcile(nil))
	assert.Equal(t, "c1", out.Context.ClientID)
	require.Len(t, fields, len(policy.Schema()))
}

func TestValueFor(t *testing.T) {
	r := newTestReconciler()
	assert.Equal(t, "DIS", r.ValueFor(policy.Combustible, "gasoil").Ref.ID)
	assert.Equal(t, "2024-03-01", r.ValueFor(policy.VigenciaDesde, "01/03/2024").Text)
}
