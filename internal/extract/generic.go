package extract

import (
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultMaxBlockLen is the flattened-text cap on candidate blocks. Larger
// blocks are whole-page containers, not product tiles.
const DefaultMaxBlockLen = 600

// blockTags are the ancestor kinds the generic strategy walks up to.
var blockTags = map[string]bool{
	"li":      true,
	"article": true,
	"div":     true,
	"section": true,
}

// Generic is the robustness backstop. It ignores page structure entirely:
// scan every text node for the full keyword phrase, walk up to the nearest
// block-level ancestor, and look for a currency amount in that block's
// flattened text. The text-node gate is strict so a common token like
// "cream" cannot anchor the wrong tile; only the container check relaxes
// to any-one-token. No dependency on any class name, so it keeps working
// as the page evolves.
type Generic struct {
	// MaxBlockLen rejects candidate blocks whose flattened text is longer,
	// even when a valid price is present.
	MaxBlockLen int
}

// NewGeneric builds the strategy; maxBlockLen <= 0 uses the default cap.
func NewGeneric(maxBlockLen int) *Generic {
	if maxBlockLen <= 0 {
		maxBlockLen = DefaultMaxBlockLen
	}
	return &Generic{MaxBlockLen: maxBlockLen}
}

func (g *Generic) Name() string { return "generic-text" }

func (g *Generic) Extract(doc *goquery.Document, keyword string) (*Result, bool) {
	tokens := keywordTokens(keyword)
	if len(tokens) == 0 {
		return nil, false
	}

	var res *Result
	seen := make(map[*html.Node]bool)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if res != nil {
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode && containsPhrase(n.Data, keyword) {
			if block := nearestBlock(n); block != nil && !seen[block] {
				seen[block] = true
				res = g.tryBlock(block, tokens, keyword)
				if res != nil {
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Selection.Nodes {
		walk(n)
	}
	return res, res != nil
}

// tryBlock validates one candidate ancestor and builds a result from it.
func (g *Generic) tryBlock(block *html.Node, tokens []string, keyword string) *Result {
	text := Flatten(flattenNode(block))
	if utf8.RuneCountInString(text) > g.MaxBlockLen {
		return nil
	}
	if !containsAnyToken(text, tokens) {
		return nil
	}
	price, ok := findPrice(text)
	if !ok {
		return nil
	}
	return &Result{
		Name:  tileName(goquery.NewDocumentFromNode(block).Selection, text, keyword),
		Price: price,
	}
}

// nearestBlock returns the closest block-level ancestor of a text node.
func nearestBlock(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && blockTags[p.Data] {
			return p
		}
	}
	return nil
}

// flattenNode collects the text content of a subtree, skipping script and
// style bodies.
func flattenNode(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return ""
	}
	var out string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out += flattenNode(c) + " "
	}
	return out
}
