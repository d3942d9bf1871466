package constants

import (
	"sort"
	"strings"
)

// MasterCategory names a master-data vocabulary published by Velneo.
type MasterCategory string

const (
	Fuel        MasterCategory = "fuel"
	Category    MasterCategory = "category"
	Destination MasterCategory = "destination"
	Quality     MasterCategory = "quality"
	Department  MasterCategory = "department"
	Currency    MasterCategory = "currency"
	Payment     MasterCategory = "payment"
)

var allCategories = []MasterCategory{
	Fuel,
	Category,
	Destination,
	Quality,
	Department,
	Currency,
	Payment,
}

// AllCategories returns the resolvable categories in a stable order.
func AllCategories() []MasterCategory {
	out := make([]MasterCategory, len(allCategories))
	copy(out, allCategories)
	return out
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// DieselCanonical is the backend's own spelling of diesel. Velneo matches on it verbatim.
const DieselCanonical = "DISEL"

// synonyms maps normalized free text (lower-case, single spaces) to the backend's
// canonical entry name, per category.
var synonyms = map[MasterCategory]map[string]string{
	Fuel: {
		"diesel":   DieselCanonical,
		"disel":    DieselCanonical,
		"gasoil":   DieselCanonical,
		"gas oil":  DieselCanonical,
		"gasoleo":  DieselCanonical,
		"nafta":    "NAFTA",
		"gasolina": "NAFTA",
		"super":    "NAFTA",
		"electric": "ELECTRICO",
		"ev":       "ELECTRICO",
		"hybrid":   "HIBRIDO",
		"hibrido":  "HIBRIDO",
	},
	Currency: {
		"uyu":     "PESOS URUGUAYOS",
		"pesos":   "PESOS URUGUAYOS",
		"usd":     "DOLARES AMERICANOS",
		"u s":     "DOLARES AMERICANOS",
		"us":      "DOLARES AMERICANOS",
		"dolares": "DOLARES AMERICANOS",
		"dolar":   "DOLARES AMERICANOS",
	},
	Destination: {
		"particular": "PARTICULAR",
		"privado":    "PARTICULAR",
		"comercial":  "COMERCIAL",
		"trabajo":    "COMERCIAL",
	},
	Payment: {
		"contado":  "CONTADO",
		"efectivo": "CONTADO",
		"tarjeta":  "TARJETA DE CREDITO",
		"credito":  "TARJETA DE CREDITO",
		"debito":   "DEBITO AUTOMATICO",
	},
}

// Canonicalize maps normalized text to the canonical entry name of a category using the
// static synonym table. Input must already be normalized (lower-case, no accents, single
// spaces). Exact synonym keys win; otherwise the longest synonym found as a whole token run
// inside the input is used.
func Canonicalize(cat MasterCategory, normalized string) (string, bool) {
	table, ok := synonyms[cat]
	if !ok || normalized == "" {
		return "", false
	}
	if canon, ok := table[normalized]; ok {
		return canon, true
	}

	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	padded := " " + normalized + " "
	for _, k := range keys {
		if strings.Contains(padded, " "+k+" ") {
			return table[k], true
		}
	}
	return "", false
}
