package record

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Observation is the persisted form of a PriceRecord. Prices are kept as
// text: the snapshot file is operator-editable and historically has carried
// junk values, so parsing is deferred to the consumers, which skip
// unparsable entries instead of failing the run.
type Observation struct {
	Branch    string `json:"branch,omitempty"`
	Name      string `json:"name,omitempty"`
	Price     string `json:"price"`
	WasPrice  string `json:"was_price,omitempty"`
	UnitPrice string `json:"unit_price,omitempty"`
	OnSpecial bool   `json:"on_special,omitempty"`
	Strategy  string `json:"strategy,omitempty"`
}

// ParsePrice returns the observation's price as a decimal. A leading dollar
// sign and surrounding whitespace are tolerated.
func (o Observation) ParsePrice() (decimal.Decimal, error) {
	return ParsePrice(o.Price)
}

// ParsePrice parses price text of the form "3.50" or "$3.50".
func ParsePrice(text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "$"))
	return decimal.NewFromString(s)
}

// ObservationFrom converts a live extraction result to its persisted form.
func ObservationFrom(r PriceRecord) Observation {
	o := Observation{
		Branch:    r.Branch,
		Name:      r.Name,
		Price:     r.Price.StringFixed(2),
		UnitPrice: r.UnitPrice,
		OnSpecial: r.OnSpecial,
		Strategy:  r.Strategy,
	}
	if r.WasPrice != nil {
		o.WasPrice = r.WasPrice.StringFixed(2)
	}
	return o
}

// Snapshot is the complete observation set for one run: item key -> store ->
// last observed record. A missing (item, store) pair means the item was
// unresolved at that store this run, a normal outcome.
type Snapshot map[string]map[Store]Observation

// Set records an observation, allocating the inner map on first use.
func (s Snapshot) Set(item string, store Store, o Observation) {
	m, ok := s[item]
	if !ok {
		m = make(map[Store]Observation)
		s[item] = m
	}
	m[store] = o
}

// Get returns the observation for an (item, store) pair.
func (s Snapshot) Get(item string, store Store) (Observation, bool) {
	o, ok := s[item][store]
	return o, ok
}

// Items returns the snapshot's item keys in sorted order.
func (s Snapshot) Items() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
