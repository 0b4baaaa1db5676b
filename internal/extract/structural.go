package extract

import (
	"github.com/PuerkitoBio/goquery"
)

// nameSelector finds the best-effort product name inside a matched tile.
const nameSelector = "h2, h3, [class*='name'], [class*='title']"

// nameFallbackLen caps the flattened-text fallback when no name element
// exists inside a matched block.
const nameFallbackLen = 48

// Structural matches whole product tiles by class-name or attribute
// patterns. A candidate qualifies only when its flattened text contains at
// least one keyword token AND a currency amount.
type Structural struct {
	name     string
	selector string
}

// CurrentTemplate returns the strategy for the present-day tile markup.
func CurrentTemplate() *Structural {
	return &Structural{
		name: "current-template",
		selector: "li.ft-product-tile, li[class*='product-tile'], " +
			"div[class*='product-tile'], article[class*='tile']",
	}
}

// LegacyTemplate returns the strategy for the previous tile generation,
// which some cache layers still serve.
func LegacyTemplate() *Structural {
	return &Structural{
		name: "legacy-template",
		selector: "div.tile--product, div.product-item, " +
			"div[data-module='product'], li[class*='item']",
	}
}

func (s *Structural) Name() string { return s.name }

func (s *Structural) Extract(doc *goquery.Document, keyword string) (*Result, bool) {
	tokens := keywordTokens(keyword)
	var res *Result
	doc.Find(s.selector).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		text := Flatten(card.Text())
		if !containsAnyToken(text, tokens) {
			return true
		}
		price, ok := findPrice(text)
		if !ok {
			return true
		}
		res = &Result{
			Name:  tileName(card, text, keyword),
			Price: price,
		}
		return false
	})
	return res, res != nil
}

// tileName extracts the display name from a matched tile: a heading or
// name/title-flagged child, else the leading runes of the flattened text,
// else the original keyword.
func tileName(card *goquery.Selection, flattened, keyword string) string {
	if el := card.Find(nameSelector).First(); el.Length() > 0 {
		if name := Flatten(el.Text()); name != "" {
			return name
		}
	}
	if flattened != "" {
		return truncateRunes(flattened, nameFallbackLen)
	}
	return keyword
}
