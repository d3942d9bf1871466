package vocabulary

import (
	"log/slog"

	"github.com/joseph-ayodele/policy-intake/constants"
	"github.com/joseph-ayodele/policy-intake/internal/policy"
)

// Match records which resolution step produced an ID.
type Match string

const (
	MatchExact    Match = "exact"
	MatchContains Match = "contains"
	MatchSynonym  Match = "synonym"
	MatchDefault  Match = "default"
)

// Resolver maps free text to master-data IDs. It never fails: text that matches nothing
// resolves to the category default.
type Resolver struct {
	vocab  *Vocabulary
	logger *slog.Logger
}

func NewResolver(v *Vocabulary, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{vocab: v, logger: logger}
}

// Vocabulary returns the tables the resolver reads.
func (r *Resolver) Vocabulary() *Vocabulary { return r.vocab }

// Resolve returns the ID for text in category cat.
func (r *Resolver) Resolve(cat constants.MasterCategory, text string) string {
	ref, _ := r.ResolveRef(cat, text)
	return ref.ID
}

// ResolveRef returns the resolved reference and the step that produced it.
func (r *Resolver) ResolveRef(cat constants.MasterCategory, text string) (policy.MasterRef, Match) {
	t := r.vocab.Table(cat)
	q := Normalize(text)
	if q == "" {
		return r.fallback(t, text), MatchDefault
	}
	if e, ok := t.exact(q); ok {
		return ref(cat, e), MatchExact
	}
	if e, ok := t.contains(q); ok {
		return ref(cat, e), MatchContains
	}
	if canon, ok := constants.Canonicalize(cat, q); ok {
		if e, ok := t.exact(Normalize(canon)); ok {
			return ref(cat, e), MatchSynonym
		}
	}
	return r.fallback(t, text), MatchDefault
}

func (r *Resolver) fallback(t *Table, text string) policy.MasterRef {
	out := policy.MasterRef{Category: t.Category(), ID: t.DefaultID()}
	if e, ok := t.ByID(out.ID); ok {
		out.Name = e.Name
	}
	if text != "" {
		r.logger.Debug("vocabulary.resolve.fallback", "category", t.Category(), "text", text, "default_id", out.ID)
	}
	return out
}

func ref(cat constants.MasterCategory, e Entry) policy.MasterRef {
	return policy.MasterRef{Category: cat, ID: e.ID, Name: e.Name}
}
