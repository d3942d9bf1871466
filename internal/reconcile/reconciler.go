// Package reconcile merges document-AI fields into the canonical draft and owns the manual
// override rules.
package reconcile

import (
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/policy-intake/internal/docai"
	"github.com/joseph-ayodele/policy-intake/internal/mapping"
	"github.com/joseph-ayodele/policy-intake/internal/policy"
	"github.com/joseph-ayodele/policy-intake/internal/vocabulary"
)

// Result is the output of a reconcile pass. Draft and Mapped always cover every schema field.
type Result struct {
	Draft    policy.Draft
	Mapped   Fields
	Unmapped []docai.ExtractedField
}

// Reconciler applies the mapping table and the vocabulary resolver to extracted fields.
type Reconciler struct {
	table    *mapping.Table
	resolver *vocabulary.Resolver
	logger   *slog.Logger
}

func New(table *mapping.Table, resolver *vocabulary.Resolver, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{table: table, resolver: resolver, logger: logger}
}

type candidate struct {
	field    docai.ExtractedField
	input    int
	position int
	priority int
	value    policy.Value
	valid    bool
	fallback bool
}

// Reconcile maps fields onto the schema. It never fails: unknown names land in Unmapped,
// invalid values are kept and flagged, and absent fields get empty or default values.
func (r *Reconciler) Reconcile(fields []docai.ExtractedField) Result {
	candidates := make(map[policy.Field][]candidate)
	var unmapped []docai.ExtractedField

	for i, f := range fields {
		rules := r.table.RulesFor(f.Name)
		if len(rules) == 0 {
			unmapped = append(unmapped, f)
			continue
		}
		raw := f.RawString()
		for _, rule := range rules {
			c := candidate{
				field:    f,
				input:    i,
				position: r.table.Position(f.Name, rule.Target),
				priority: rule.Priority,
			}
			c.value, c.fallback = r.transform(rule, raw)
			c.valid = rule.Valid(c.value)
			candidates[rule.Target] = append(candidates[rule.Target], c)
		}
	}

	mapped := make(Fields, len(candidates))
	for target, cs := range candidates {
		sort.SliceStable(cs, func(i, j int) bool {
			a, b := cs[i], cs[j]
			if a.valid != b.valid {
				return a.valid
			}
			if a.priority != b.priority {
				return a.priority > b.priority
			}
			if a.input != b.input {
				return a.input < b.input
			}
			return a.position < b.position
		})
		w := cs[0]
		conf := Percent(w.field.Confidence)
		tier := TierFor(conf)
		mapped[target] = MappedField{
			Extracted:      w.field.RawString(),
			Value:          w.value,
			Confidence:     conf,
			Tier:           tier,
			RequiresReview: tier != TierHigh || !w.valid || w.fallback,
			Valid:          w.valid,
			Source:         SourceAI,
			SourceName:     w.field.Name,
		}
		if len(cs) > 1 {
			r.logger.Debug("reconcile.conflict", "field", target, "candidates", len(cs), "winner", w.field.Name)
		}
	}

	r.fillMissing(mapped)
	r.derive(mapped)

	if len(unmapped) > 0 {
		names := make([]string, len(unmapped))
		for i, u := range unmapped {
			names[i] = u.Name
		}
		r.logger.Info("reconcile.unmapped", "count", len(unmapped), "names", names)
	}

	return Result{
		Draft:    mapped.ApplyTo(policy.NewDraft(policy.Context{})),
		Mapped:   mapped,
		Unmapped: unmapped,
	}
}

// transform applies the rule to raw text. The bool reports a master-data default fallback.
func (r *Reconciler) transform(rule mapping.Rule, raw string) (policy.Value, bool) {
	if rule.IsMasterRef() {
		ref, match := r.resolver.ResolveRef(rule.Category, raw)
		return policy.Ref(ref), match == vocabulary.MatchDefault && raw != ""
	}
	return rule.Transform(raw), false
}

// ValueFor converts operator text for field f the way a reconcile pass would.
func (r *Reconciler) ValueFor(f policy.Field, raw string) policy.Value {
	rule, ok := r.table.Primary(f)
	if !ok {
		spec, _ := policy.Lookup(f)
		return policy.Empty(spec)
	}
	v, _ := r.transform(rule, raw)
	return v
}

// Valid runs the primary rule validator of f on v.
func (r *Reconciler) Valid(f policy.Field, v policy.Value) bool {
	rule, ok := r.table.Primary(f)
	if !ok {
		return true
	}
	return rule.Valid(v)
}

func (r *Reconciler) fillMissing(mapped Fields) {
	for _, spec := range policy.Schema() {
		if _, ok := mapped[spec.Name]; ok {
			continue
		}
		mapped[spec.Name] = r.emptyField(spec)
	}
}

// emptyField is the placeholder of a field nothing extracted. Master-data fields get the
// category default.
func (r *Reconciler) emptyField(spec policy.FieldSpec) MappedField {
	v := policy.Empty(spec)
	if spec.Kind == policy.KindMasterRef {
		ref, _ := r.resolver.ResolveRef(spec.Category, "")
		v = policy.Ref(ref)
	}
	return MappedField{
		Value:  v,
		Tier:   TierFor(0),
		Valid:  !spec.Required,
		Source: SourceCalculated,
	}
}

// derive fills the installment amount from the total when the document omits it.
func (r *Reconciler) derive(mapped Fields) {
	cuota := mapped[policy.ValorCuota]
	if cuota.Source != SourceCalculated || !cuota.Value.IsEmpty() {
		return
	}
	total, cuotas := mapped[policy.PremioTotal], mapped[policy.CantidadCuotas]
	if total.Value.IsEmpty() || !cuotas.Value.Number.IsPositive() {
		return
	}
	amount := total.Value.Number.Div(cuotas.Value.Number).Round(2)
	conf := min(total.Confidence, cuotas.Confidence)
	mapped[policy.ValorCuota] = MappedField{
		Extracted:  total.Value.Number.String() + " / " + cuotas.Value.Number.String(),
		Value:      policy.Number(amount),
		Confidence: conf,
		Tier:       TierFor(conf),
		Valid:      amount.GreaterThan(decimal.Zero),
		Source:     SourceCalculated,
	}
}
