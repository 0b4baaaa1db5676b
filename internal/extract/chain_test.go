package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return doc
}

const currentTemplatePage = `
<html><body>
<ul>
  <li class="ft-product-tile">
    <h2>Full Cream Milk 2L</h2>
    <span class="price">$3.10</span>
  </li>
  <li class="ft-product-tile">
    <h2>Skim Milk 1L</h2>
    <span class="price">$1.60</span>
  </li>
</ul>
</body></html>`

const legacyTemplatePage = `
<html><body>
<div class="tile--product">
  <h3>Free Range Eggs 12pk</h3>
  <div>$5.80</div>
</div>
</body></html>`

const unstructuredPage = `
<html><body>
<div id="wrapper">
  <div>
    <p>Weekly special: Sourdough Bread Loaf</p>
    <p>now $4.50 each</p>
  </div>
</div>
</body></html>`

func TestChain_StructuralStrategyWins(t *testing.T) {
	// The tile satisfies both the structural and the generic strategy; the
	// chain must short-circuit on the structural one.
	doc := parseDoc(t, currentTemplatePage)
	res, err := DefaultChain().Extract(doc, "milk")
	require.NoError(t, err)
	assert.Equal(t, "current-template", res.Strategy)
	assert.Equal(t, "Full Cream Milk 2L", res.Name)
	assert.True(t, res.Price.Equal(decimal.RequireFromString("3.10")))
}

func TestChain_FallsThroughToLegacyTemplate(t *testing.T) {
	doc := parseDoc(t, legacyTemplatePage)
	res, err := DefaultChain().Extract(doc, "eggs")
	require.NoError(t, err)
	assert.Equal(t, "legacy-template", res.Strategy)
	assert.Equal(t, "Free Range Eggs 12pk", res.Name)
	assert.True(t, res.Price.Equal(decimal.RequireFromString("5.80")))
}

func TestChain_GenericBackstopOnUnstructuredPage(t *testing.T) {
	doc := parseDoc(t, unstructuredPage)
	res, err := DefaultChain().Extract(doc, "sourdough bread")
	require.NoError(t, err)
	assert.Equal(t, "generic-text", res.Strategy)
	assert.True(t, res.Price.Equal(decimal.RequireFromString("4.50")))
}

func TestChain_ExhaustedReturnsNoMatch(t *testing.T) {
	doc := parseDoc(t, `<html><body><p>nothing for sale here</p></body></html>`)
	_, err := DefaultChain().Extract(doc, "milk")
	require.Error(t, err)
	assert.True(t, IsNoMatch(err))
	assert.Contains(t, err.Error(), "current-template")
	assert.Contains(t, err.Error(), "generic-text")
}

func TestStructural_PartialKeywordMatch(t *testing.T) {
	// Any one token of a multi-word keyword suffices.
	doc := parseDoc(t, currentTemplatePage)
	s := CurrentTemplate()
	res, ok := s.Extract(doc, "organic skim wombat")
	require.True(t, ok)
	assert.Equal(t, "Skim Milk 1L", res.Name)
}

func TestStructural_RequiresPricePattern(t *testing.T) {
	doc := parseDoc(t, `
<html><body>
<li class="ft-product-tile"><h2>Milk 2L</h2><span>out of stock</span></li>
</body></html>`)
	_, ok := CurrentTemplate().Extract(doc, "milk")
	assert.False(t, ok)
}

func TestStructural_NameFallsBackToBlockText(t *testing.T) {
	doc := parseDoc(t, `
<html><body>
<li class="ft-product-tile">Chocolate block 200g $6.00</li>
</body></html>`)
	res, ok := CurrentTemplate().Extract(doc, "chocolate")
	require.True(t, ok)
	assert.Equal(t, "Chocolate block 200g $6.00", res.Name)
}

func TestGeneric_SharedTokenDoesNotAnchorWrongBlock(t *testing.T) {
	// "Sour Cream" shares the token "cream" and appears first; the text-node
	// gate must demand the full phrase and move on to the right tile.
	doc := parseDoc(t, `
<html><body>
<div>Sour Cream 300g tub $2.80</div>
<div>Full Cream Milk 2L $3.10</div>
</body></html>`)
	res, ok := NewGeneric(DefaultMaxBlockLen).Extract(doc, "full cream milk")
	require.True(t, ok)
	assert.True(t, res.Price.Equal(decimal.RequireFromString("3.10")))
	assert.Equal(t, "Full Cream Milk 2L $3.10", res.Name)
}

func TestGeneric_RejectsOversizedBlocks(t *testing.T) {
	// A valid price inside a block over the cap must not match.
	filler := strings.Repeat("lorem ipsum ", 100)
	doc := parseDoc(t, `
<html><body>
<div>milk and everything else on the page `+filler+` $3.10</div>
</body></html>`)
	_, ok := NewGeneric(DefaultMaxBlockLen).Extract(doc, "milk")
	assert.False(t, ok)
}

func TestGeneric_AcceptsBlockWithinCap(t *testing.T) {
	doc := parseDoc(t, `
<html><body>
<section><span>Butter 250g</span> <span>$4.20</span></section>
</body></html>`)
	res, ok := NewGeneric(DefaultMaxBlockLen).Extract(doc, "butter")
	require.True(t, ok)
	assert.True(t, res.Price.Equal(decimal.RequireFromString("4.20")))
}

func TestGeneric_IgnoresScriptText(t *testing.T) {
	doc := parseDoc(t, `
<html><body>
<div><script>var milk = {"price": "$9.99"};</script></div>
<div>milk carton $2.20</div>
</body></html>`)
	res, ok := NewGeneric(DefaultMaxBlockLen).Extract(doc, "milk")
	require.True(t, ok)
	assert.True(t, res.Price.Equal(decimal.RequireFromString("2.20")))
}

func TestFindPrice_RequiresTwoDecimalDigits(t *testing.T) {
	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{"now $3.10 each", "3.10", true},
		{"$ 12.95", "12.95", true},
		{"$3.1", "", false},
		{"3.10", "", false},
		{"save 20%", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			d, ok := findPrice(tc.text)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.True(t, d.Equal(decimal.RequireFromString(tc.want)))
			}
		})
	}
}

func TestFlatten_CollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "Milk 2L $3.10", Flatten("  Milk \n\t 2L  $3.10 "))
}
