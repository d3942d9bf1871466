package validation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/policy-intake/internal/docai"
	"github.com/joseph-ayodele/policy-intake/internal/policy"
	"github.com/joseph-ayodele/policy-intake/internal/reconcile"
	"github.com/joseph-ayodele/policy-intake/internal/vocabulary"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func testEngine() *Engine {
	cfg := DefaultConfig()
	cfg.Now = func() time.Time { return fixedNow }
	cfg.EstadosPoliza = vocabulary.NewSet([]string{"VIGENTE", "ANULADA"})
	cfg.TiposTramite = vocabulary.NewSet([]string{"NUEVO", "RENOVACION"})
	return NewEngine(cfg, nil)
}

func num(s string) policy.Value {
	return policy.Number(decimal.RequireFromString(s))
}

// validDraft passes every rule.
func validDraft() policy.Draft {
	return policy.NewDraft(policy.Context{}).WithAll(map[policy.Field]policy.Value{
		policy.NumeroPoliza:   policy.Text("AB-12345"),
		policy.Asegurado:      policy.Text("ANA PEREZ"),
		policy.Documento:      policy.Text("12345672"),
		policy.Email:          policy.Text("ana@correo.com.uy"),
		policy.Telefono:       policy.Text("099123456"),
		policy.VigenciaDesde:  policy.Text("2024-03-01"),
		policy.VigenciaHasta:  policy.Text("2025-03-01"),
		policy.Cobertura:      policy.Text("TODO RIESGO"),
		policy.Prima:          num("10000"),
		policy.PrimaComercial: num("9000"),
		policy.PremioTotal:    num("12000"),
		policy.CantidadCuotas: num("10"),
		policy.ValorCuota:     num("1200"),
		policy.Matricula:      policy.Text("SBA1234"),
		policy.Anio:           num("2020"),
		policy.EstadoPoliza:   policy.Text("VIGENTE"),
	})
}

func TestValidDraftHasNoIssues(t *testing.T) {
	rep := testEngine().Validate(validDraft())
	assert.Empty(t, rep.Errors)
	assert.Empty(t, rep.Warnings)
	assert.True(t, rep.OK())
}

func TestRequiredFields(t *testing.T) {
	rep := testEngine().Validate(policy.NewDraft(policy.Context{}))
	var fields []policy.Field
	for _, is := range rep.Errors {
		assert.Equal(t, RuleRequired, is.Rule)
		fields = append(fields, is.Field)
	}
	assert.Equal(t, []policy.Field{
		policy.NumeroPoliza,
		policy.Asegurado,
		policy.VigenciaDesde,
		policy.VigenciaHasta,
		policy.Cobertura,
		policy.Prima,
	}, fields)
}

func TestReversedVigenciaReportsOneError(t *testing.T) {
	d := validDraft().
		With(policy.VigenciaDesde, policy.Text("2024-03-01")).
		With(policy.VigenciaHasta, policy.Text("2024-01-01"))
	rep := testEngine().Validate(d)

	require.Len(t, rep.Errors, 1)
	assert.Equal(t, policy.Vigencia, rep.Errors[0].Field)
	assert.Equal(t, RuleDateOrder, rep.Errors[0].Rule)
	for _, w := range rep.Warnings {
		assert.NotEqual(t, policy.Vigencia, w.Field)
		assert.NotEqual(t, policy.VigenciaDesde, w.Field)
		assert.NotEqual(t, policy.VigenciaHasta, w.Field)
	}
	assert.Empty(t, rep.Warnings)
}

func TestRules(t *testing.T) {
	tests := []struct {
		name     string
		field    policy.Field
		value    policy.Value
		rule     string
		severity Severity
	}{
		{"bad CI", policy.Documento, policy.Text("12345673"), RuleDocument, SeverityError},
		{"bad RUT", policy.Documento, policy.Text("211003420018"), RuleDocument, SeverityError},
		{"bad document length", policy.Documento, policy.Text("123"), RuleDocument, SeverityError},
		{"bad email", policy.Email, policy.Text("ana@"), RuleEmail, SeverityError},
		{"bad phone", policy.Telefono, policy.Text("12345"), RulePhone, SeverityError},
		{"bad date", policy.VigenciaDesde, policy.Text("01/03/2024"), RuleDate, SeverityError},
		{"span too long", policy.VigenciaHasta, policy.Text("2026-03-02"), RuleDateSpan, SeverityError},
		{"expired", policy.VigenciaHasta, policy.Text("2024-06-14"), RuleExpired, SeverityWarning},
		{"negative prima", policy.Prima, num("-5"), RulePositive, SeverityError},
		{"total below prima", policy.Prima, num("13000"), RuleTotalVsPremium, SeverityError},
		{"bad plate", policy.Matricula, policy.Text("A1"), RulePlate, SeverityError},
		{"odd year", policy.Anio, num("1890"), RuleYear, SeverityWarning},
		{"unknown estado", policy.EstadoPoliza, policy.Text("SUSPENDIDA"), RuleMembership, SeverityError},
		{"installments off", policy.ValorCuota, num("1000"), RuleInstallments, SeverityWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := testEngine().Validate(validDraft().With(tt.field, tt.value))
			issues := rep.Errors
			other := rep.Warnings
			if tt.severity == SeverityWarning {
				issues, other = rep.Warnings, rep.Errors
			}
			require.Len(t, issues, 1, "%+v", rep)
			assert.Equal(t, tt.rule, issues[0].Rule)
			assert.Empty(t, other)
		})
	}
}

func TestPremiumCeilings(t *testing.T) {
	e := testEngine()
	d := validDraft().
		With(policy.Prima, num("30000")).
		With(policy.PrimaComercial, num("9000")).
		With(policy.PremioTotal, num("2000000")).
		With(policy.CantidadCuotas, num("1"))
	rep := e.Validate(d)
	assert.Empty(t, rep.Errors)
	require.Len(t, rep.Warnings, 1)
	assert.Equal(t, RulePremiumRatio, rep.Warnings[0].Rule)

	d = d.With(policy.Prima, num("1500000")).With(policy.PrimaComercial, num("1000000"))
	rep = e.Validate(d)
	require.Len(t, rep.Warnings, 1)
	assert.Equal(t, RulePremiumCeiling, rep.Warnings[0].Rule)
}

func TestWarningsSuppressedByFieldError(t *testing.T) {
	d := validDraft().
		With(policy.VigenciaDesde, policy.Text("2019-01-01")).
		With(policy.VigenciaHasta, policy.Text("2023-01-01"))
	rep := testEngine().Validate(d)
	errs := rep.ErrorsFor(policy.Vigencia)
	require.Len(t, errs, 1)
	assert.Equal(t, RuleDateSpan, errs[0].Rule)
	assert.Empty(t, rep.Warnings)
}

func TestValidateIsDeterministic(t *testing.T) {
	e := testEngine()
	d := policy.NewDraft(policy.Context{}).
		With(policy.Documento, policy.Text("999")).
		With(policy.VigenciaDesde, policy.Text("2024-03-01")).
		With(policy.VigenciaHasta, policy.Text("2020-01-01"))
	first := e.Validate(d)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, e.Validate(d))
	}
}

func TestReviewWarnings(t *testing.T) {
	fields := reconcile.Fields{
		policy.NumeroPoliza: {Extracted: "AB-1", Value: policy.Text("AB-1"), Confidence: 62, Tier: reconcile.TierLow, RequiresReview: true, Valid: true, Source: reconcile.SourceAI},
		policy.Email:        {Extracted: "x@", Value: policy.Text("x@"), Confidence: 95, Tier: reconcile.TierHigh, RequiresReview: true, Source: reconcile.SourceAI},
		policy.Asegurado:    {Extracted: "ANA", Value: policy.Text("ANA"), Confidence: 100, Tier: reconcile.TierHigh, Source: reconcile.SourceManual},
	}
	unmapped := []docai.ExtractedField{{Name: "codigo", Raw: "77", Confidence: 0.9}}

	issues := testEngine().ReviewWarnings(fields, unmapped)
	require.Len(t, issues, 3)
	assert.Equal(t, policy.NumeroPoliza, issues[0].Field)
	assert.Equal(t, RuleReview, issues[0].Rule)
	assert.Contains(t, issues[0].Message, "62%")
	assert.Equal(t, policy.Email, issues[1].Field)
	assert.Equal(t, policy.Field("codigo"), issues[2].Field)
	assert.Equal(t, RuleUnmapped, issues[2].Rule)
	for _, is := range issues {
		assert.Equal(t, SeverityWarning, is.Severity)
	}
}
