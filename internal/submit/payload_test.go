package submit

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/policy-intake/constants"
	"github.com/joseph-ayodele/policy-intake/internal/common"
	"github.com/joseph-ayodele/policy-intake/internal/policy"
)

func num(s string) policy.Value {
	return policy.Number(decimal.RequireFromString(s))
}

func testDraft() policy.Draft {
	ctx := policy.Context{ClientID: "c1", CompanyID: "bse", SectionID: "auto", Operation: constants.OperationNew}
	return policy.NewDraft(ctx).WithAll(map[policy.Field]policy.Value{
		policy.NumeroPoliza:   policy.Text("AB-12345"),
		policy.Asegurado:      policy.Text("ANA PEREZ"),
		policy.VigenciaDesde:  policy.Text("2024-03-01"),
		policy.VigenciaHasta:  policy.Text("2025-03-01"),
		policy.Cobertura:      policy.Text("TODO RIESGO"),
		policy.Prima:          num("10000"),
		policy.PremioTotal:    num("12000"),
		policy.CantidadCuotas: num("10"),
		policy.ValorCuota:     num("1200"),
		policy.FormaPago:      policy.Ref(policy.MasterRef{Category: constants.Payment, ID: "TARJETA", Name: "TARJETA"}),
		policy.Combustible:    policy.Ref(policy.MasterRef{Category: constants.Fuel, ID: "DIS", Name: constants.DieselCanonical}),
	})
}

func TestBuildPayload(t *testing.T) {
	p, err := BuildPayload(testDraft(), Provenance{ProcessedWithAI: true, SourceFile: "poliza.pdf", CompletenessPercent: 86.25})
	require.NoError(t, err)

	assert.Equal(t, "AB-12345", p["poliza_numero"])
	assert.Equal(t, "2024-03-01", p["fecha_desde"])
	assert.Equal(t, json.Number("10000"), p["prima"])
	assert.Equal(t, "DIS", p["combustible_id"])
	assert.Equal(t, "DISEL", p[KeyFuelName])
	assert.Equal(t, true, p[KeyProcessedAI])
	assert.Equal(t, "NUEVA", p[KeyOperation])
	assert.NotContains(t, p, "asegurado_email", "empty optional fields are omitted")
	assert.NotContains(t, p, "numeroPoliza", "canonical names never leak")

	obs := p[KeyObservations].(string)
	assert.Contains(t, obs, "Archivo: poliza.pdf")
	assert.Contains(t, obs, "Completitud: 86.3%")
	assert.Contains(t, obs, "Plan de pago: 10 cuotas de 1200.00 (TARJETA)")
}

func TestBuildPayloadSingleInstallmentHasNoPlan(t *testing.T) {
	d := testDraft().With(policy.CantidadCuotas, num("1"))
	p, err := BuildPayload(d, Provenance{})
	require.NoError(t, err)
	obs := p[KeyObservations].(string)
	assert.Equal(t, "Ingreso manual", obs)
	assert.Equal(t, false, p[KeyProcessedAI])
}

func TestBuildPayloadRejectsIncompleteRecords(t *testing.T) {
	tests := []struct {
		name  string
		draft policy.Draft
	}{
		{"missing prima", testDraft().With(policy.Prima, policy.Number(decimal.Zero))},
		{"missing client", testDraft().WithContext(policy.Context{CompanyID: "bse", SectionID: "auto", Operation: constants.OperationNew})},
		{"bad date", testDraft().With(policy.VigenciaDesde, policy.Text("01/03/2024"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildPayload(tt.draft, Provenance{})
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestEveryFieldHasABackendName(t *testing.T) {
	seen := map[string]bool{}
	for _, f := range policy.Fields() {
		name, ok := BackendName(f)
		require.True(t, ok, f)
		assert.False(t, seen[name], "duplicate backend name %s", name)
		seen[name] = true
	}
}
