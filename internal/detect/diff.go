// Package detect turns two snapshots into a ranked list of change events.
package detect

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dstanway/grocermon/internal/record"
)

// Kind classifies a change event.
type Kind string

const (
	KindDrop    Kind = "drop"
	KindRise    Kind = "rise"
	KindNew     Kind = "new"
	KindRemoved Kind = "removed"
)

// ChangeEvent is one detected movement. New and removed events are
// informational: a new item carries no OldPrice, a removed one no
// NewPrice, and neither carries a Change.
type ChangeEvent struct {
	Item      string
	Store     record.Store
	Branch    string
	Kind      Kind
	OldPrice  decimal.Decimal
	NewPrice  decimal.Decimal
	Change    decimal.Decimal
	OnSpecial bool
}

// Mode selects the thresholding scheme. Deployments pick exactly one; the
// two are never mixed within a run.
type Mode string

const (
	// ModeRelative qualifies a move when it exceeds a fraction of the old
	// price. The drop boundary is old > new*(1+threshold), deliberately
	// more permissive near the boundary than new < old - threshold*old.
	ModeRelative Mode = "relative"

	// ModeAbsolute qualifies a move when |new-old| exceeds a fixed dollar
	// amount.
	ModeAbsolute Mode = "absolute"
)

// Threshold is the qualification rule for price moves.
type Threshold struct {
	Mode  Mode
	Value decimal.Decimal
}

// DefaultThreshold is a 20% relative threshold, the long-standing
// production setting.
func DefaultThreshold() Threshold {
	return Threshold{Mode: ModeRelative, Value: decimal.RequireFromString("0.2")}
}

// Diff compares the current run's snapshot against the prior one and
// returns qualifying events, drops ranked first (most negative change
// first), then rises (largest first), then new items, then removals.
//
// A price that fails to parse on either side causes that (item, store)
// pair to be skipped; a damaged stored value never aborts a run.
func Diff(newSnap, oldSnap record.Snapshot, th Threshold) []ChangeEvent {
	var events []ChangeEvent

	for _, item := range newSnap.Items() {
		for store, obs := range newSnap[item] {
			newPrice, err := obs.ParsePrice()
			if err != nil {
				continue
			}

			oldObs, existed := oldSnap.Get(item, store)
			if !existed {
				events = append(events, ChangeEvent{
					Item:      item,
					Store:     store,
					Branch:    obs.Branch,
					Kind:      KindNew,
					NewPrice:  newPrice,
					OnSpecial: obs.OnSpecial,
				})
				continue
			}

			oldPrice, err := oldObs.ParsePrice()
			if err != nil {
				continue
			}

			kind, ok := classify(oldPrice, newPrice, th)
			if !ok {
				continue
			}
			events = append(events, ChangeEvent{
				Item:      item,
				Store:     store,
				Branch:    obs.Branch,
				Kind:      kind,
				OldPrice:  oldPrice,
				NewPrice:  newPrice,
				Change:    newPrice.Sub(oldPrice),
				OnSpecial: obs.OnSpecial,
			})
		}
	}

	// Items that vanished between runs.
	for _, item := range oldSnap.Items() {
		for store, obs := range oldSnap[item] {
			if _, still := newSnap.Get(item, store); still {
				continue
			}
			oldPrice, err := obs.ParsePrice()
			if err != nil {
				continue
			}
			events = append(events, ChangeEvent{
				Item:     item,
				Store:    store,
				Branch:   obs.Branch,
				Kind:     KindRemoved,
				OldPrice: oldPrice,
			})
		}
	}

	sortEvents(events)
	return events
}

// classify applies the threshold scheme to a price pair.
func classify(oldPrice, newPrice decimal.Decimal, th Threshold) (Kind, bool) {
	switch th.Mode {
	case ModeAbsolute:
		change := newPrice.Sub(oldPrice)
		if change.Abs().GreaterThan(th.Value) {
			if change.IsNegative() {
				return KindDrop, true
			}
			return KindRise, true
		}
	default: // relative
		factor := decimal.NewFromInt(1).Add(th.Value)
		if oldPrice.GreaterThan(newPrice.Mul(factor)) {
			return KindDrop, true
		}
		if newPrice.GreaterThan(oldPrice.Mul(factor)) {
			return KindRise, true
		}
	}
	return "", false
}

// kindRank orders sections: drops, rises, new, removed.
func kindRank(k Kind) int {
	switch k {
	case KindDrop:
		return 0
	case KindRise:
		return 1
	case KindNew:
		return 2
	default:
		return 3
	}
}

func sortEvents(events []ChangeEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if ra, rb := kindRank(a.Kind), kindRank(b.Kind); ra != rb {
			return ra < rb
		}
		switch a.Kind {
		case KindDrop:
			// Most negative first.
			if !a.Change.Equal(b.Change) {
				return a.Change.LessThan(b.Change)
			}
		case KindRise:
			// Largest first.
			if !a.Change.Equal(b.Change) {
				return a.Change.GreaterThan(b.Change)
			}
		}
		if a.Item != b.Item {
			return a.Item < b.Item
		}
		return a.Store < b.Store
	})
}
