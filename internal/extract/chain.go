package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// Result is a successful extraction, prior to attribution with store and
// branch by the calling adapter.
type Result struct {
	Name      string
	Price     decimal.Decimal
	WasPrice  *decimal.Decimal
	UnitPrice string
	OnSpecial bool

	// Strategy names the strategy that produced the result.
	Strategy string
}

// Strategy is one self-contained extraction algorithm. Extract reports
// (nil, false) when the strategy finds nothing; strategies never error,
// absence is their only failure mode.
type Strategy interface {
	Name() string
	Extract(doc *goquery.Document, keyword string) (*Result, bool)
}

// NoMatchError reports that every strategy in the chain was exhausted.
type NoMatchError struct {
	Keyword string
	Tried   []string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no strategy matched %q (tried %s)", e.Keyword, strings.Join(e.Tried, ", "))
}

// IsNoMatch reports whether err is a chain exhaustion, through wrapping.
func IsNoMatch(err error) bool {
	var nm *NoMatchError
	return errors.As(err, &nm)
}

// Chain evaluates strategies in priority order with short-circuit success:
// once a strategy returns a result, later strategies are never consulted.
type Chain struct {
	strategies []Strategy
}

// NewChain builds a chain from strategies in priority order.
func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// DefaultChain returns the production chain: current template, legacy
// template, then the generic text-proximity backstop.
func DefaultChain() *Chain {
	return NewChain(
		CurrentTemplate(),
		LegacyTemplate(),
		NewGeneric(DefaultMaxBlockLen),
	)
}

// Extract runs the chain over a parsed document and returns the first
// non-absent result, or a NoMatchError naming the strategies tried.
func (c *Chain) Extract(doc *goquery.Document, keyword string) (*Result, error) {
	tried := make([]string, 0, len(c.strategies))
	for _, s := range c.strategies {
		if r, ok := s.Extract(doc, keyword); ok {
			r.Strategy = s.Name()
			return r, nil
		}
		tried = append(tried, s.Name())
	}
	return nil, &NoMatchError{Keyword: keyword, Tried: tried}
}
