package vocabulary

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/policy-intake/constants"
)

// Entry is one master-data item.
type Entry struct {
	ID      string   `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

type wireEntry struct {
	ID          json.RawMessage `json:"id"`
	Name        string          `json:"name"`
	Nombre      string          `json:"nombre"`
	Descripcion string          `json:"descripcion"`
	Aliases     []string        `json:"aliases"`
}

// UnmarshalJSON accepts numeric or string IDs, Velneo's "nombre"/"descripcion" naming, and bare
// strings (string-ID vocabularies such as payment methods).
func (e *Entry) UnmarshalJSON(b []byte) error {
	var bare string
	if err := json.Unmarshal(b, &bare); err == nil {
		*e = Entry{ID: bare, Name: bare}
		return nil
	}

	var w wireEntry
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	id, err := rawID(w.ID)
	if err != nil {
		return err
	}
	name := w.Name
	if name == "" {
		name = w.Nombre
	}
	if name == "" {
		name = w.Descripcion
	}
	*e = Entry{ID: id, Name: name, Aliases: w.Aliases}
	return nil
}

func rawID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("entry id: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	return n.String(), nil
}

// UnmarshalYAML accepts a mapping or a bare scalar.
func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*e = Entry{ID: node.Value, Name: node.Value}
		return nil
	}
	type plain Entry
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*e = Entry(p)
	return nil
}

// Table is the ordered vocabulary of one category. It is read-only after construction.
type Table struct {
	category  constants.MasterCategory
	entries   []Entry
	defaultID string
	keys      [][]string // normalized name then aliases, per entry
}

// NewTable builds a table. defaultID is returned whenever nothing matches.
func NewTable(cat constants.MasterCategory, entries []Entry, defaultID string) *Table {
	t := &Table{
		category:  cat,
		entries:   append([]Entry(nil), entries...),
		defaultID: defaultID,
		keys:      make([][]string, len(entries)),
	}
	for i, e := range t.entries {
		ks := make([]string, 0, 1+len(e.Aliases))
		if n := Normalize(e.Name); n != "" {
			ks = append(ks, n)
		}
		for _, a := range e.Aliases {
			if n := Normalize(a); n != "" {
				ks = append(ks, n)
			}
		}
		t.keys[i] = ks
	}
	return t
}

func (t *Table) Category() constants.MasterCategory { return t.category }

func (t *Table) DefaultID() string { return t.defaultID }

func (t *Table) Len() int { return len(t.entries) }

// Entries returns a copy of the entries in backend order.
func (t *Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// ByID looks an entry up by its backend ID.
func (t *Table) ByID(id string) (Entry, bool) {
	for _, e := range t.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

func (t *Table) exact(q string) (Entry, bool) {
	for i, ks := range t.keys {
		for _, k := range ks {
			if k == q {
				return t.entries[i], true
			}
		}
	}
	return Entry{}, false
}

func (t *Table) contains(q string) (Entry, bool) {
	for i, ks := range t.keys {
		for _, k := range ks {
			if contains(k, q) || contains(q, k) {
				return t.entries[i], true
			}
		}
	}
	return Entry{}, false
}

// Set is an enumerated free-text category validated by membership.
type Set struct {
	values []string
	index  map[string]struct{}
}

func NewSet(values []string) Set {
	s := Set{values: append([]string(nil), values...), index: make(map[string]struct{}, len(values))}
	for _, v := range values {
		s.index[Normalize(v)] = struct{}{}
	}
	return s
}

// Contains reports membership, ignoring case and accents.
func (s Set) Contains(v string) bool {
	_, ok := s.index[Normalize(v)]
	return ok
}

func (s Set) Values() []string { return append([]string(nil), s.values...) }

func (s Set) Len() int { return len(s.values) }
