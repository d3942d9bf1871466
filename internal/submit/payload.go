// Package submit turns a validated draft into the backend's submission payload and sends it.
package submit

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/policy-intake/internal/common"
	"github.com/joseph-ayodele/policy-intake/internal/policy"
	"github.com/joseph-ayodele/policy-intake/internal/utils"
)

// Backend field names of the context and provenance entries.
const (
	KeyClient       = "cliente_id"
	KeyCompany      = "compania_id"
	KeySection      = "seccion_id"
	KeyOperation    = "tipo_operacion"
	KeyProcessedAI  = "procesado_con_ia"
	KeyObservations = "observaciones"
	KeyFuelName     = "combustible"
)

// backendNames renames canonical fields to the backend's schema.
var backendNames = map[policy.Field]string{
	policy.NumeroPoliza:   "poliza_numero",
	policy.Asegurado:      "asegurado_nombre",
	policy.Documento:      "asegurado_documento",
	policy.Email:          "asegurado_email",
	policy.Telefono:       "asegurado_telefono",
	policy.Direccion:      "asegurado_direccion",
	policy.Departamento:   "departamento_id",
	policy.VigenciaDesde:  "fecha_desde",
	policy.VigenciaHasta:  "fecha_hasta",
	policy.Cobertura:      "cobertura",
	policy.MontoAsegurado: "capital_asegurado",
	policy.EstadoPoliza:   "estado_poliza",
	policy.TipoTramite:    "tipo_tramite",
	policy.Matricula:      "vehiculo_matricula",
	policy.Marca:          "vehiculo_marca",
	policy.Modelo:         "vehiculo_modelo",
	policy.Anio:           "vehiculo_anio",
	policy.Motor:          "vehiculo_motor",
	policy.Chasis:         "vehiculo_chasis",
	policy.Combustible:    "combustible_id",
	policy.Categoria:      "categoria_id",
	policy.Destino:        "destino_id",
	policy.Calidad:        "calidad_id",
	policy.Prima:          "prima",
	policy.PrimaComercial: "prima_comercial",
	policy.PremioTotal:    "premio_total",
	policy.Moneda:         "moneda_id",
	policy.FormaPago:      "forma_pago",
	policy.CantidadCuotas: "cantidad_cuotas",
	policy.ValorCuota:     "valor_cuota",
}

// BackendName returns the backend key of f.
func BackendName(f policy.Field) (string, bool) {
	n, ok := backendNames[f]
	return n, ok
}

// Provenance describes where the record came from.
type Provenance struct {
	ProcessedWithAI     bool
	SourceFile          string
	CompletenessPercent float64
}

// Payload is the flat record posted to the backend.
type Payload map[string]any

var payloadSchema = utils.NewSchema("policy-submission.json", func() map[string]any {
	str := map[string]any{"type": "string", "minLength": 1}
	money := map[string]any{"type": "number", "exclusiveMinimum": 0}
	date := map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`}
	return map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type":    "object",
		"required": []string{
			KeyClient, KeyCompany, KeySection, KeyOperation, KeyProcessedAI, KeyObservations,
			"poliza_numero", "asegurado_nombre", "fecha_desde", "fecha_hasta", "cobertura", "prima",
		},
		"properties": map[string]any{
			KeyClient:          str,
			KeyCompany:         str,
			KeySection:         str,
			KeyOperation:       map[string]any{"enum": []string{"NUEVA", "RENOVACION", "CAMBIO", "ENDOSO"}},
			KeyProcessedAI:     map[string]any{"type": "boolean"},
			KeyObservations:    map[string]any{"type": "string"},
			"poliza_numero":    str,
			"asegurado_nombre": str,
			"fecha_desde":      date,
			"fecha_hasta":      date,
			"cobertura":        str,
			"prima":            money,
			"premio_total":     money,
			"cantidad_cuotas":  map[string]any{"type": "integer", "minimum": 1},
		},
	}
})

// BuildPayload renames the draft to backend keys and checks the result against the submission
// schema. Empty optional fields are omitted. Master references emit their ID; fuel also
// carries the backend's token verbatim.
func BuildPayload(d policy.Draft, prov Provenance) (Payload, error) {
	p := Payload{
		KeyClient:       d.Context.ClientID,
		KeyCompany:      d.Context.CompanyID,
		KeySection:      d.Context.SectionID,
		KeyOperation:    string(d.Context.Operation),
		KeyProcessedAI:  prov.ProcessedWithAI,
		KeyObservations: Observations(d, prov),
	}
	for _, spec := range policy.Schema() {
		v := d.Get(spec.Name)
		if v.IsEmpty() {
			continue
		}
		key := backendNames[spec.Name]
		switch v.Kind {
		case policy.KindText:
			p[key] = v.Text
		case policy.KindNumber:
			p[key] = json.Number(v.Number.String())
		case policy.KindMasterRef:
			p[key] = v.Ref.ID
			if spec.Name == policy.Combustible && v.Ref.Name != "" {
				p[KeyFuelName] = v.Ref.Name
			}
		}
	}

	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	if err := payloadSchema.ValidateJSON(b); err != nil {
		return nil, common.NewAppError("INVALID_PAYLOAD", "submission payload", fmt.Errorf("%w: %v", common.ErrValidation, err))
	}
	return p, nil
}

// Observations renders the human-readable notes block.
func Observations(d policy.Draft, prov Provenance) string {
	var lines []string
	if prov.ProcessedWithAI {
		lines = append(lines, "Procesado con IA")
	} else {
		lines = append(lines, "Ingreso manual")
	}
	if prov.SourceFile != "" {
		lines = append(lines, "Archivo: "+prov.SourceFile)
	}
	if prov.ProcessedWithAI {
		lines = append(lines, fmt.Sprintf("Completitud: %s%%", decimal.NewFromFloat(prov.CompletenessPercent).Round(1).String()))
	}
	cuotas := d.Get(policy.CantidadCuotas).Number
	if cuotas.GreaterThan(decimal.NewFromInt(1)) {
		plan := fmt.Sprintf("Plan de pago: %s cuotas", cuotas.String())
		if vc := d.Get(policy.ValorCuota); !vc.IsEmpty() {
			plan += " de " + vc.Number.StringFixed(2)
		}
		if fp := d.Get(policy.FormaPago); !fp.IsEmpty() {
			plan += " (" + fp.String() + ")"
		}
		lines = append(lines, plan)
	}
	return strings.Join(lines, "\n")
}
