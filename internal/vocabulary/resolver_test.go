package vocabulary

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/policy-intake/constants"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	return NewResolver(New(loadFixture(t), testDefaults), nil)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"DIESEL (GAS-OIL)", "diesel gas oil"},
		{"  Paysandú ", "paysandu"},
		{"U$S", "u s"},
		{"Pick-Up", "pick up"},
		{"Año 2020", "ano 2020"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestResolveFallbackIsTotal(t *testing.T) {
	r := newTestResolver(t)
	for _, cat := range constants.AllCategories() {
		t.Run(string(cat), func(t *testing.T) {
			assert.Equal(t, testDefaults[cat], r.Resolve(cat, ""))
			assert.Equal(t, testDefaults[cat], r.Resolve(cat, "zzz-unknown-zzz"))
		})
	}
}

func TestResolveDieselSpellings(t *testing.T) {
	r := newTestResolver(t)
	want := r.Resolve(constants.Fuel, "DISEL")
	require.Equal(t, "DIS", want)

	for _, text := range []string{"DIESEL (GAS-OIL)", "diesel", "Gas-Oil", "GASOIL", "gasóleo"} {
		assert.Equal(t, want, r.Resolve(constants.Fuel, text), text)
	}
}

func TestResolveRef(t *testing.T) {
	r := newTestResolver(t)
	tests := []struct {
		name  string
		cat   constants.MasterCategory
		text  string
		id    string
		match Match
	}{
		{"exact name", constants.Fuel, "nafta", "NAF", MatchExact},
		{"exact ignores accents", constants.Department, "Paysandu", "4", MatchExact},
		{"exact alias", constants.Category, "Pick-Up", "2", MatchExact},
		{"entry inside text", constants.Category, "AUTOMOVIL SEDAN 4 PUERTAS", "1", MatchContains},
		{"text inside entry", constants.Payment, "tarjeta", "TARJETA DE CREDITO", MatchContains},
		{"synonym", constants.Currency, "USD", "2", MatchSynonym},
		{"synonym with symbols", constants.Currency, "U$S", "2", MatchSynonym},
		{"synonym fuel", constants.Fuel, "Gasolina", "NAF", MatchSynonym},
		{"fragment inside entry", constants.Category, "mot", "3", MatchContains},
		{"plural", constants.Category, "CAMIONETAS", "2", MatchContains},
		{"plural alias", constants.Category, "MOTOCICLETAS", "3", MatchContains},
		{"suffixed", constants.Destination, "TAXIMETRO", "3", MatchContains},
		{"plural of shorter entry", constants.Category, "CAMIONES", "4", MatchContains},
		{"too short to contain", constants.Category, "mo", "1", MatchDefault},
		{"empty", constants.Quality, "", "1", MatchDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, match := r.ResolveRef(tt.cat, tt.text)
			assert.Equal(t, tt.id, ref.ID)
			assert.Equal(t, tt.match, match)
			assert.Equal(t, tt.cat, ref.Category)
		})
	}
}

func TestResolveDefaultCarriesName(t *testing.T) {
	r := newTestResolver(t)
	ref, match := r.ResolveRef(constants.Fuel, "")
	assert.Equal(t, MatchDefault, match)
	assert.Equal(t, "NAF", ref.ID)
	assert.Equal(t, "NAFTA", ref.Name)
}

func TestResolveWithoutMasterData(t *testing.T) {
	r := NewResolver(New(MasterData{}, testDefaults), nil)
	ref, match := r.ResolveRef(constants.Fuel, "DISEL")
	assert.Equal(t, MatchDefault, match)
	assert.Equal(t, "NAF", ref.ID)
	assert.Empty(t, ref.Name)
}

func TestDefaultsValidate(t *testing.T) {
	assert.NoError(t, testDefaults.Validate())

	partial := Defaults{constants.Fuel: "NAF"}
	assert.Error(t, partial.Validate())
}

func TestEntryUnmarshalJSON(t *testing.T) {
	var data MasterData
	raw := `{
		"combustibles": [{"id": 7, "nombre": "DISEL"}],
		"monedas": [{"id": "2", "descripcion": "DOLARES AMERICANOS"}],
		"formasPago": ["CONTADO"],
		"estadosPoliza": ["VIGENTE"]
	}`
	require.NoError(t, json.Unmarshal([]byte(raw), &data))

	assert.Equal(t, Entry{ID: "7", Name: "DISEL"}, data.Combustibles[0])
	assert.Equal(t, Entry{ID: "2", Name: "DOLARES AMERICANOS"}, data.Monedas[0])
	assert.Equal(t, Entry{ID: "CONTADO", Name: "CONTADO"}, data.FormasPago[0])
}

func TestSetContains(t *testing.T) {
	v := New(loadFixture(t), testDefaults)
	assert.True(t, v.EstadosPoliza().Contains("vigente"))
	assert.True(t, v.TiposTramite().Contains("Renovación"))
	assert.False(t, v.EstadosPoliza().Contains("SUSPENDIDA"))
}
