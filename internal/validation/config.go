package validation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/policy-intake/internal/vocabulary"
)

// Config holds the thresholds of the rule table. It is passed by value and never mutated.
type Config struct {
	// Now is the clock used for expiry checks.
	Now func() time.Time
	// MaxSpanYears bounds the coverage period.
	MaxSpanYears int
	// PremiumCeilingRatio flags a premium above ratio × commercial premium.
	PremiumCeilingRatio decimal.Decimal
	// PremiumCeiling flags a premium above this absolute amount.
	PremiumCeiling decimal.Decimal
	// InstallmentTolerance is the allowed gap between cuotas × valorCuota and premioTotal.
	InstallmentTolerance decimal.Decimal
	// EstadosPoliza and TiposTramite enable membership checks when non-empty.
	EstadosPoliza vocabulary.Set
	TiposTramite  vocabulary.Set
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		Now:                  time.Now,
		MaxSpanYears:         2,
		PremiumCeilingRatio:  decimal.NewFromInt(3),
		PremiumCeiling:       decimal.NewFromInt(1_000_000),
		InstallmentTolerance: decimal.NewFromInt(1),
	}
}

// WithVocabulary enables the membership checks backed by master data.
func (c Config) WithVocabulary(v *vocabulary.Vocabulary) Config {
	c.EstadosPoliza = v.EstadosPoliza()
	c.TiposTramite = v.TiposTramite()
	return c
}
