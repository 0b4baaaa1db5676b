package record

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Store identifies a storefront source.
type Store string

const (
	StoreWoolworths Store = "woolworths"
	StoreColes      Store = "coles"
	StoreAldi       Store = "aldi"
)

// AllStores lists the known stores in reporting order.
var AllStores = []Store{StoreWoolworths, StoreColes, StoreAldi}

// Display returns the storefront's customer-facing name.
func (s Store) Display() string {
	switch s {
	case StoreWoolworths:
		return "Woolworths"
	case StoreColes:
		return "Coles"
	case StoreAldi:
		return "ALDI"
	default:
		return string(s)
	}
}

// Item is one tracked basket entry. Key is the operator-chosen stable
// identity ("milk_2L"); Query is the free-text search keyword used against
// keyword-driven sources; ProductID is the Woolworths product identifier,
// empty when the item is not tracked there.
type Item struct {
	Key       string `yaml:"key" json:"key"`
	Query     string `yaml:"query" json:"query"`
	ProductID string `yaml:"woolworths_id,omitempty" json:"woolworths_id,omitempty"`
}

// Validate checks that the item carries the fields every source needs.
func (i Item) Validate() error {
	if strings.TrimSpace(i.Key) == "" {
		return fmt.Errorf("item key is required")
	}
	if strings.TrimSpace(i.Query) == "" {
		return fmt.Errorf("item %q: query is required", i.Key)
	}
	return nil
}

// PriceRecord is the immutable result of one successful extraction.
type PriceRecord struct {
	Store     Store
	Branch    string
	Name      string
	Price     decimal.Decimal
	WasPrice  *decimal.Decimal
	UnitPrice string
	OnSpecial bool

	// Strategy names the extraction path that produced the record.
	// Diagnostics only; never consulted by business logic.
	Strategy string
}

// Validate enforces the one hard invariant: a positive price. WasPrice is
// expected to exceed Price but markdown data is inconsistent upstream, so
// that relation is deliberately not checked.
func (r PriceRecord) Validate() error {
	if !r.Price.IsPositive() {
		return fmt.Errorf("price %s is not positive", r.Price)
	}
	return nil
}
