// Package policy defines the canonical policy record the wizard builds: the target schema,
// the tagged-union field values and the draft aggregate.
package policy

import "github.com/joseph-ayodele/policy-intake/constants"

// Field is a canonical schema field name.
type Field string

const (
	NumeroPoliza   Field = "numeroPoliza"
	Asegurado      Field = "asegurado"
	Documento      Field = "documento"
	Email          Field = "email"
	Telefono       Field = "telefono"
	Direccion      Field = "direccion"
	VigenciaDesde  Field = "vigenciaDesde"
	VigenciaHasta  Field = "vigenciaHasta"
	Prima          Field = "prima"
	PrimaComercial Field = "primaComercial"
	PremioTotal    Field = "premioTotal"
	Cobertura      Field = "cobertura"
	MontoAsegurado Field = "montoAsegurado"
	Matricula      Field = "matricula"
	Marca          Field = "marca"
	Modelo         Field = "modelo"
	Anio           Field = "anio"
	Motor          Field = "motor"
	Chasis         Field = "chasis"
	Combustible    Field = "combustible"
	Categoria      Field = "categoria"
	Destino        Field = "destino"
	Calidad        Field = "calidad"
	Departamento   Field = "departamento"
	Moneda         Field = "moneda"
	FormaPago      Field = "formaPago"
	CantidadCuotas Field = "cantidadCuotas"
	ValorCuota     Field = "valorCuota"
	EstadoPoliza   Field = "estadoPoliza"
	TipoTramite    Field = "tipoTramite"

	// Vigencia is not stored; cross-field date issues are attributed to it.
	Vigencia Field = "vigencia"
)

// Tab is the form tab a field is edited on. Failed submits route the operator to the
// tab of the first blocking error.
type Tab string

const (
	TabGeneral  Tab = "general"
	TabVehicle  Tab = "vehiculo"
	TabCoverage Tab = "cobertura"
	TabPayment  Tab = "pago"
)

// FieldSpec describes one schema field.
type FieldSpec struct {
	Name     Field
	Kind     Kind
	Required bool
	Date     bool
	Category constants.MasterCategory // masterRef fields only
	Tab      Tab
}

var schema = []FieldSpec{
	{Name: NumeroPoliza, Kind: KindText, Required: true, Tab: TabGeneral},
	{Name: Asegurado, Kind: KindText, Required: true, Tab: TabGeneral},
	{Name: Documento, Kind: KindText, Tab: TabGeneral},
	{Name: Email, Kind: KindText, Tab: TabGeneral},
	{Name: Telefono, Kind: KindText, Tab: TabGeneral},
	{Name: Direccion, Kind: KindText, Tab: TabGeneral},
	{Name: Departamento, Kind: KindMasterRef, Category: constants.Department, Tab: TabGeneral},
	{Name: VigenciaDesde, Kind: KindText, Required: true, Date: true, Tab: TabCoverage},
	{Name: VigenciaHasta, Kind: KindText, Required: true, Date: true, Tab: TabCoverage},
	{Name: Cobertura, Kind: KindText, Required: true, Tab: TabCoverage},
	{Name: MontoAsegurado, Kind: KindNumber, Tab: TabCoverage},
	{Name: EstadoPoliza, Kind: KindText, Tab: TabCoverage},
	{Name: TipoTramite, Kind: KindText, Tab: TabCoverage},
	{Name: Matricula, Kind: KindText, Tab: TabVehicle},
	{Name: Marca, Kind: KindText, Tab: TabVehicle},
	{Name: Modelo, Kind: KindText, Tab: TabVehicle},
	{Name: Anio, Kind: KindNumber, Tab: TabVehicle},
	{Name: Motor, Kind: KindText, Tab: TabVehicle},
	{Name: Chasis, Kind: KindText, Tab: TabVehicle},
	{Name: Combustible, Kind: KindMasterRef, Category: constants.Fuel, Tab: TabVehicle},
	{Name: Categoria, Kind: KindMasterRef, Category: constants.Category, Tab: TabVehicle},
	{Name: Destino, Kind: KindMasterRef, Category: constants.Destination, Tab: TabVehicle},
	{Name: Calidad, Kind: KindMasterRef, Category: constants.Quality, Tab: TabVehicle},
	{Name: Prima, Kind: KindNumber, Required: true, Tab: TabPayment},
	{Name: PrimaComercial, Kind: KindNumber, Tab: TabPayment},
	{Name: PremioTotal, Kind: KindNumber, Tab: TabPayment},
	{Name: Moneda, Kind: KindMasterRef, Category: constants.Currency, Tab: TabPayment},
	{Name: FormaPago, Kind: KindMasterRef, Category: constants.Payment, Tab: TabPayment},
	{Name: CantidadCuotas, Kind: KindNumber, Tab: TabPayment},
	{Name: ValorCuota, Kind: KindNumber, Tab: TabPayment},
}

var byName = func() map[Field]FieldSpec {
	m := make(map[Field]FieldSpec, len(schema))
	for _, s := range schema {
		m[s.Name] = s
	}
	return m
}()

// Schema returns the field specs in declaration order.
func Schema() []FieldSpec {
	out := make([]FieldSpec, len(schema))
	copy(out, schema)
	return out
}

// Fields returns the schema field names in declaration order.
func Fields() []Field {
	out := make([]Field, len(schema))
	for i, s := range schema {
		out[i] = s.Name
	}
	return out
}

// Lookup returns the definition of a schema field.
func Lookup(f Field) (FieldSpec, bool) {
	s, ok := byName[f]
	return s, ok
}

// TabOf returns the form tab for a field. Vigencia lives with its dates.
func TabOf(f Field) Tab {
	if f == Vigencia {
		return TabCoverage
	}
	if s, ok := byName[f]; ok {
		return s.Tab
	}
	return TabGeneral
}
