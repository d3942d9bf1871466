// Package vocabulary resolves free text to Velneo master-data IDs.
package vocabulary

import (
	"fmt"

	"github.com/joseph-ayodele/policy-intake/constants"
)

// MasterData is the master-data document published by the backend.
type MasterData struct {
	Categorias    []Entry  `json:"categorias" yaml:"categorias"`
	Destinos      []Entry  `json:"destinos" yaml:"destinos"`
	Calidades     []Entry  `json:"calidades" yaml:"calidades"`
	Combustibles  []Entry  `json:"combustibles" yaml:"combustibles"`
	Monedas       []Entry  `json:"monedas" yaml:"monedas"`
	Departamentos []Entry  `json:"departamentos" yaml:"departamentos"`
	FormasPago    []Entry  `json:"formasPago" yaml:"formasPago"`
	EstadosPoliza []string `json:"estadosPoliza" yaml:"estadosPoliza"`
	TiposTramite  []string `json:"tiposTramite" yaml:"tiposTramite"`
}

func (m MasterData) entries(cat constants.MasterCategory) []Entry {
	switch cat {
	case constants.Fuel:
		return m.Combustibles
	case constants.Category:
		return m.Categorias
	case constants.Destination:
		return m.Destinos
	case constants.Quality:
		return m.Calidades
	case constants.Department:
		return m.Departamentos
	case constants.Currency:
		return m.Monedas
	case constants.Payment:
		return m.FormasPago
	}
	return nil
}

// Defaults holds the mandatory fallback ID of each category.
type Defaults map[constants.MasterCategory]string

// Validate requires a default for every category.
func (d Defaults) Validate() error {
	for _, cat := range constants.AllCategories() {
		if d[cat] == "" {
			return fmt.Errorf("vocabulary: missing default id for category %q", cat)
		}
	}
	return nil
}

// Vocabulary is the loaded master data of a session. It is read-only.
type Vocabulary struct {
	tables        map[constants.MasterCategory]*Table
	estadosPoliza Set
	tiposTramite  Set
}

// New builds the per-category tables from a master-data document.
func New(data MasterData, defaults Defaults) *Vocabulary {
	v := &Vocabulary{
		tables:        make(map[constants.MasterCategory]*Table, len(constants.AllCategories())),
		estadosPoliza: NewSet(data.EstadosPoliza),
		tiposTramite:  NewSet(data.TiposTramite),
	}
	for _, cat := range constants.AllCategories() {
		v.tables[cat] = NewTable(cat, data.entries(cat), defaults[cat])
	}
	return v
}

// Table returns the table of a category; unknown categories get an empty table.
func (v *Vocabulary) Table(cat constants.MasterCategory) *Table {
	if t, ok := v.tables[cat]; ok {
		return t
	}
	return NewTable(cat, nil, "")
}

func (v *Vocabulary) EstadosPoliza() Set { return v.estadosPoliza }

func (v *Vocabulary) TiposTramite() Set { return v.tiposTramite }
