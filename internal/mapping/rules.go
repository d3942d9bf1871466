package mapping

import (
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/policy-intake/constants"
	"github.com/joseph-ayodele/policy-intake/internal/checks"
	"github.com/joseph-ayodele/policy-intake/internal/policy"
)

// Rule priorities. Specific names outrank generic ones.
const (
	PriorityPrimary = 10
	PriorityRange   = 7
	PriorityGeneric = 5
)

func notEmpty(v policy.Value) bool { return !v.IsEmpty() }

func positive(v policy.Value) bool { return v.Number.IsPositive() }

func validDocument(v policy.Value) bool { return checks.ValidDocument(v.Text) }

func validEmail(v policy.Value) bool { return checks.ValidEmail(v.Text) }

func validPhone(v policy.Value) bool { return checks.ValidPhone(v.Text) }

func validPlate(v policy.Value) bool { return checks.ValidPlate(v.Text) }

func validPolicyNumber(v policy.Value) bool {
	return len(checks.Digits(v.Text)) >= 3
}

func validDate(v policy.Value) bool {
	_, ok := policy.ParseDate(v.Text)
	return ok
}

func between(lo, hi int64) func(policy.Value) bool {
	return func(v policy.Value) bool {
		return v.Number.GreaterThanOrEqual(decimal.NewFromInt(lo)) && v.Number.LessThanOrEqual(decimal.NewFromInt(hi))
	}
}

// validYear accepts any four-digit model year from 1900; recency is a validation warning.
var validYear = between(1900, 9999)

func masterRule(target policy.Field, cat constants.MasterCategory, names ...string) Rule {
	return Rule{SourceNames: names, Target: target, Category: cat, Priority: PriorityPrimary}
}

// DefaultRules is the mapping for the document-AI policy model.
func DefaultRules() []Rule {
	return []Rule{
		{
			SourceNames: []string{"numeroPoliza", "numero_poliza", "policy_number", "poliza_numero", "nro_poliza", "numero de poliza", "policyNumber"},
			Target:      policy.NumeroPoliza, Transform: UpperValue, Validate: validPolicyNumber, Priority: PriorityPrimary,
		},
		{
			SourceNames: []string{"poliza", "policy", "numero"},
			Target:      policy.NumeroPoliza, Transform: UpperValue, Validate: validPolicyNumber, Priority: PriorityGeneric,
		},
		{
			SourceNames: []string{"asegurado", "insured", "insured_name", "nombre_asegurado", "titular"},
			Target:      policy.Asegurado, Transform: UpperValue, Validate: notEmpty, Priority: PriorityPrimary,
		},
		{
			SourceNames: []string{"nombre", "cliente", "tomador"},
			Target:      policy.Asegurado, Transform: UpperValue, Validate: notEmpty, Priority: PriorityGeneric,
		},
		{
			SourceNames: []string{"documento", "documento_asegurado", "ci", "cedula", "rut", "national_id", "tax_id"},
			Target:      policy.Documento, Transform: DigitsValue, Validate: validDocument, Priority: PriorityPrimary,
		},
		{
			SourceNames: []string{"email", "e_mail", "correo", "mail"},
			Target:      policy.Email, Transform: EmailValue, Validate: validEmail, Priority: PriorityPrimary,
		},
		{
			SourceNames: []string{"telefono", "tel", "celular", "movil", "phone"},
			Target:      policy.Telefono, Transform: PhoneValue, Validate: validPhone, Priority: PriorityPrimary,
		},
		{
			SourceNames: []string{"direccion", "domicilio", "address"},
			Target:      policy.Direccion, Transform: TextValue, Validate: notEmpty, Priority: PriorityPrimary,
		},
		{
			SourceNames: []string{"vigenciaDesde", "vigencia_desde", "fecha_desde", "desde", "fecha_inicio", "inicio_vigencia", "start_date"},
			Target:      policy.VigenciaDesde, Transform: DateValue, Validate: validDate, Priority: PriorityPrimary,
		},
		{
			SourceNames: []string{"vigenciaHasta", "vigencia_hasta", "fecha_hasta", "hasta", "fecha_fin", "fin_vigencia", "end_date"},
			Target:      policy.VigenciaHasta, Transform: DateValue, Validate: validDate, Priority: PriorityPrimary,
		},
		{
			SourceNames: []string{"vigencia", "periodo", "periodo_vigencia", "policy_period"},
			Target:      policy.VigenciaDesde, Transform: RangeDate(0), Validate: validDate, Priority: PriorityRange,
		},
		{
			SourceNames: []string{"vigencia", "periodo", "periodo_vigencia", "policy_period"},
			Target:      policy.VigenciaHasta, Transform: RangeDate(1), Validate: validDate, Priority: PriorityRange,
		},
		{
			SourceNames: []string{"prima", "prima_neta", "premium", "net_premium"},
			Target:      policy.Prima, Transform: MoneyValue, Validate: positive, Priority: PriorityPrimary,
		},
		{
			SourceNames: []string{"primaComercial", "prima_comercial", "commercial_premium"},
			Target:      policy.PrimaComercial, Transform: MoneyValue, Validate: positive, Priority: PriorityPrimary,
		},
		{
			SourceNames: []string{"premioTotal", "premio_total", "total_a_pagar", "total_premium"},
			Target:      policy.PremioTotal, Transform: MoneyValue, Validate: positive, Priority: PriorityPrimary,
		},
		{
			SourceNames: []string{"premio", "total"},
			Target:      policy.PremioTotal, Transform: MoneyValue, Validate: positive, Priority: PriorityGeneric,
		},
		{
			SourceNames: []string{"cobertura", "coverage", "tipo_cobertura", "plan"},
			Target:      policy.Cobertura, Transform: UpperValue, Validate: notEmpty, Priority: PriorityPrimary,
		},
		{
			SourceNames: []string{"montoAsegurado", "monto_asegurado", "suma_asegurada", "capital_asegurado", "sum_insured"},
			Target:      policy.MontoAsegurado, Transform: MoneyValue, Validate: positive, Priority: PriorityPrimary,
		},
		{
			SourceNames: []string{"matricula", "placa", "patente", "plate", "license_plate"},
			Target:      policy.Matricula, Transform: PlateValue, Validate: validPlate, Priority: PriorityPrimary,
		},
		{
			SourceNames: []string{"marca", "brand", "make"},
			Target:      policy.Marca, Transform: UpperValue, Validate: notEmpty, Priority: PriorityPrimary,
		},
		{
			SourceNames: []string{"modelo", "model"},
			Target:      policy.Modelo, Transform: UpperValue, Validate: notEmpty, Priority: PriorityPrimary,
		},
		{
			SourceNames: []string{"anio", "año", "year", "anio_fabricacion"},
			Target:      policy.Anio, Transform: IntValue, Validate: validYear, Priority: PriorityPrimary,
		},
		{
			SourceNames: []string{"motor", "numero_motor", "engine", "engine_number"},
			Target:      policy.Motor, Transform: UpperValue, Validate: notEmpty, Priority: PriorityPrimary,
		},
		{
			SourceNames: []string{"chasis", "numero_chasis", "chassis", "vin"},
			Target:      policy.Chasis, Transform: UpperValue, Validate: notEmpty, Priority: PriorityPrimary,
		},
		masterRule(policy.Combustible, constants.Fuel, "combustible", "fuel", "fuel_type", "tipo_combustible"),
		masterRule(policy.Categoria, constants.Category, "categoria", "category", "tipo_vehiculo", "vehicle_type"),
		masterRule(policy.Destino, constants.Destination, "destino", "uso", "destination", "usage"),
		masterRule(policy.Calidad, constants.Quality, "calidad", "calidad_asegurado", "quality"),
		masterRule(policy.Departamento, constants.Department, "departamento", "department", "ciudad"),
		masterRule(policy.Moneda, constants.Currency, "moneda", "currency", "divisa"),
		masterRule(policy.FormaPago, constants.Payment, "formaPago", "forma_pago", "medio_pago", "payment_method"),
		{
			SourceNames: []string{"cantidadCuotas", "cantidad_cuotas", "cuotas", "numero_cuotas", "installments"},
			Target:      policy.CantidadCuotas, Transform: IntValue, Validate: between(1, 48), Priority: PriorityPrimary,
		},
		{
			SourceNames: []string{"valorCuota", "valor_cuota", "monto_cuota", "installment_amount"},
			Target:      policy.ValorCuota, Transform: MoneyValue, Validate: positive, Priority: PriorityPrimary,
		},
		{
			SourceNames: []string{"estadoPoliza", "estado_poliza", "estado", "status"},
			Target:      policy.EstadoPoliza, Transform: UpperValue, Validate: notEmpty, Priority: PriorityPrimary,
		},
		{
			SourceNames: []string{"tipoTramite", "tipo_tramite", "tramite"},
			Target:      policy.TipoTramite, Transform: UpperValue, Validate: notEmpty, Priority: PriorityPrimary,
		},
	}
}

// Default returns a table over DefaultRules.
func Default() *Table {
	return NewTable(DefaultRules())
}
