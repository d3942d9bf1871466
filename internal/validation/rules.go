package validation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/policy-intake/internal/checks"
	"github.com/joseph-ayodele/policy-intake/internal/policy"
	"github.com/joseph-ayodele/policy-intake/internal/vocabulary"
)

// Rule names, reported in Issue.Rule.
const (
	RuleRequired       = "required"
	RuleDocument       = "document_checksum"
	RuleEmail          = "email_format"
	RulePhone          = "phone_format"
	RuleDate           = "date_format"
	RuleDateOrder      = "date_order"
	RuleDateSpan       = "date_span"
	RuleExpired        = "expired"
	RulePositive       = "positive"
	RulePremiumRatio   = "premium_ratio"
	RulePremiumCeiling = "premium_ceiling"
	RuleTotalVsPremium = "total_vs_premium"
	RulePlate          = "plate_format"
	RuleYear           = "vehicle_year"
	RuleMembership     = "membership"
	RuleInstallments   = "installment_plan"
	RuleReview         = "review_suggested"
	RuleUnmapped       = "unmapped_input"
)

// check returns a message when the rule fails.
type check func(d policy.Draft, cfg Config) (string, bool)

type rule struct {
	field    policy.Field
	name     string
	severity Severity
	check    check
}

func required(f policy.Field) rule {
	return rule{field: f, name: RuleRequired, severity: SeverityError, check: func(d policy.Draft, _ Config) (string, bool) {
		if d.Get(f).IsEmpty() {
			return fmt.Sprintf("%s is required", f), true
		}
		return "", false
	}}
}

func textFormat(f policy.Field, name, msg string, ok func(string) bool) rule {
	return rule{field: f, name: name, severity: SeverityError, check: func(d policy.Draft, _ Config) (string, bool) {
		v := d.Get(f).Text
		if v == "" || ok(v) {
			return "", false
		}
		return msg, true
	}}
}

func dateFormat(f policy.Field) rule {
	return textFormat(f, RuleDate, "must be a valid date (YYYY-MM-DD)", func(s string) bool {
		_, ok := policy.ParseDate(s)
		return ok
	})
}

func membership(f policy.Field, set func(Config) vocabulary.Set) rule {
	return rule{field: f, name: RuleMembership, severity: SeverityError, check: func(d policy.Draft, cfg Config) (string, bool) {
		v := d.Get(f).Text
		s := set(cfg)
		if v == "" || s.Len() == 0 || s.Contains(v) {
			return "", false
		}
		return fmt.Sprintf("%q is not an accepted value", v), true
	}}
}

func vigencia(d policy.Draft) (time.Time, time.Time, bool) {
	from, ok1 := policy.ParseDate(d.Get(policy.VigenciaDesde).Text)
	to, ok2 := policy.ParseDate(d.Get(policy.VigenciaHasta).Text)
	return from, to, ok1 && ok2
}

func documentMessage(s string) string {
	switch checks.ClassifyDocument(s) {
	case checks.DocumentCI:
		return "CI check digit is invalid"
	case checks.DocumentRUT:
		return "RUT check digit is invalid"
	}
	return "must be a CI (7-8 digits) or a RUT (12 digits)"
}

func number(d policy.Draft, f policy.Field) decimal.Decimal {
	return d.Get(f).Number
}

// ruleTable is ordered by field; within a field the first failing error wins.
var ruleTable = []rule{
	required(policy.NumeroPoliza),
	required(policy.Asegurado),
	{field: policy.Documento, name: RuleDocument, severity: SeverityError, check: func(d policy.Draft, _ Config) (string, bool) {
		v := d.Get(policy.Documento).Text
		if v == "" || checks.ValidDocument(v) {
			return "", false
		}
		return documentMessage(v), true
	}},
	textFormat(policy.Email, RuleEmail, "must be a valid e-mail address", checks.ValidEmail),
	textFormat(policy.Telefono, RulePhone, "must be 8 digits (fixed line) or 9 digits starting with 09 (mobile)", checks.ValidPhone),

	required(policy.VigenciaDesde),
	dateFormat(policy.VigenciaDesde),
	required(policy.VigenciaHasta),
	dateFormat(policy.VigenciaHasta),
	{field: policy.Vigencia, name: RuleDateOrder, severity: SeverityError, check: func(d policy.Draft, _ Config) (string, bool) {
		from, to, ok := vigencia(d)
		if ok && !to.After(from) {
			return "coverage end must be after coverage start", true
		}
		return "", false
	}},
	{field: policy.Vigencia, name: RuleDateSpan, severity: SeverityError, check: func(d policy.Draft, cfg Config) (string, bool) {
		from, to, ok := vigencia(d)
		if ok && to.After(from.AddDate(cfg.MaxSpanYears, 0, 0)) {
			return fmt.Sprintf("coverage period exceeds %d years", cfg.MaxSpanYears), true
		}
		return "", false
	}},
	{field: policy.Vigencia, name: RuleExpired, severity: SeverityWarning, check: func(d policy.Draft, cfg Config) (string, bool) {
		_, to, ok := vigencia(d)
		now := cfg.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if ok && to.Before(today) {
			return "coverage has already expired", true
		}
		return "", false
	}},
	required(policy.Cobertura),

	required(policy.Prima),
	{field: policy.Prima, name: RulePositive, severity: SeverityError, check: func(d policy.Draft, _ Config) (string, bool) {
		if number(d, policy.Prima).IsNegative() {
			return "prima must be greater than zero", true
		}
		return "", false
	}},
	{field: policy.Prima, name: RulePremiumRatio, severity: SeverityWarning, check: func(d policy.Draft, cfg Config) (string, bool) {
		prima, comercial := number(d, policy.Prima), number(d, policy.PrimaComercial)
		if comercial.IsPositive() && prima.GreaterThan(comercial.Mul(cfg.PremiumCeilingRatio)) {
			return fmt.Sprintf("prima is more than %s times the commercial premium", cfg.PremiumCeilingRatio), true
		}
		return "", false
	}},
	{field: policy.Prima, name: RulePremiumCeiling, severity: SeverityWarning, check: func(d policy.Draft, cfg Config) (string, bool) {
		if cfg.PremiumCeiling.IsPositive() && number(d, policy.Prima).GreaterThan(cfg.PremiumCeiling) {
			return fmt.Sprintf("prima exceeds %s", cfg.PremiumCeiling), true
		}
		return "", false
	}},
	{field: policy.PremioTotal, name: RuleTotalVsPremium, severity: SeverityError, check: func(d policy.Draft, _ Config) (string, bool) {
		total, prima := number(d, policy.PremioTotal), number(d, policy.Prima)
		if !total.IsZero() && total.LessThan(prima) {
			return "total due must not be less than prima", true
		}
		return "", false
	}},
	{field: policy.ValorCuota, name: RuleInstallments, severity: SeverityWarning, check: func(d policy.Draft, cfg Config) (string, bool) {
		cuotas, valor, total := number(d, policy.CantidadCuotas), number(d, policy.ValorCuota), number(d, policy.PremioTotal)
		if !cuotas.GreaterThan(decimal.NewFromInt(1)) || !valor.IsPositive() || !total.IsPositive() {
			return "", false
		}
		if cuotas.Mul(valor).Sub(total).Abs().GreaterThan(cfg.InstallmentTolerance) {
			return fmt.Sprintf("%s installments of %s do not add up to %s", cuotas, valor, total), true
		}
		return "", false
	}},

	textFormat(policy.Matricula, RulePlate, "plate must look like ABC1234, AB1234 or 1234AB", checks.ValidPlate),
	{field: policy.Anio, name: RuleYear, severity: SeverityWarning, check: func(d policy.Draft, cfg Config) (string, bool) {
		y := number(d, policy.Anio)
		if y.IsZero() {
			return "", false
		}
		maxYear := int64(cfg.Now().Year() + 1)
		if y.LessThan(decimal.NewFromInt(1950)) || y.GreaterThan(decimal.NewFromInt(maxYear)) {
			return fmt.Sprintf("vehicle year %s looks unusual", y), true
		}
		return "", false
	}},

	membership(policy.EstadoPoliza, func(c Config) vocabulary.Set { return c.EstadosPoliza }),
	membership(policy.TipoTramite, func(c Config) vocabulary.Set { return c.TiposTramite }),
}
