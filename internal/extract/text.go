package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// priceRe matches a currency amount with exactly two decimal digits.
// Anything looser matches quantities and percentages on crowded tiles.
var priceRe = regexp.MustCompile(`\$\s*(\d+\.\d{2})`)

// Flatten normalizes a subtree's text for matching: NFKC so that styled
// digits and ligatures compare equal, then whitespace collapsed to single
// spaces.
func Flatten(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// keywordTokens splits a keyword into lowercased whitespace tokens.
func keywordTokens(keyword string) []string {
	return strings.Fields(strings.ToLower(keyword))
}

// containsAnyToken reports whether the text contains at least one of the
// tokens, case-insensitively. Partial multi-word matching: any one word of
// the keyword suffices, not all.
func containsAnyToken(text string, tokens []string) bool {
	lower := strings.ToLower(text)
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// containsPhrase reports whether the text contains the whole keyword
// phrase, case-insensitively, after whitespace normalization on both sides.
func containsPhrase(text, keyword string) bool {
	phrase := strings.ToLower(Flatten(keyword))
	if phrase == "" {
		return false
	}
	return strings.Contains(strings.ToLower(Flatten(text)), phrase)
}

// findPrice returns the first currency amount in the text.
func findPrice(text string) (decimal.Decimal, bool) {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(m[1])
	if err != nil || !d.IsPositive() {
		return decimal.Decimal{}, false
	}
	return d, true
}

// truncateRunes returns at most n leading runes of s.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
