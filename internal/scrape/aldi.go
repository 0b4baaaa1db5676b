package scrape

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/dstanway/grocermon/internal/extract"
	"github.com/dstanway/grocermon/internal/fetch"
	"github.com/dstanway/grocermon/internal/record"
)

// Aldi has no usable product API; prices come from category listing pages
// run through the extraction chain. Pricing is national, so the branch
// label covers every tracked location.
type Aldi struct {
	client     *fetch.Client
	chain      *extract.Chain
	categories map[string]string
	catKeys    []string
	branch     string
	referer    string
	log        zerolog.Logger
}

// AldiOptions configures the adapter. Categories maps a keyword fragment
// to the category listing URL that carries it ("milk" -> .../milk/).
type AldiOptions struct {
	Categories map[string]string
	Branch     string
	Referer    string
	Logger     zerolog.Logger
}

// NewAldi builds the adapter. A nil chain gets the default one.
func NewAldi(client *fetch.Client, chain *extract.Chain, opts AldiOptions) *Aldi {
	if chain == nil {
		chain = extract.DefaultChain()
	}
	referer := opts.Referer
	if referer == "" {
		referer = "https://www.aldi.com.au/"
	}
	// Sorted fragment list keeps category resolution deterministic.
	keys := make([]string, 0, len(opts.Categories))
	for k := range opts.Categories {
		keys = append(keys, strings.ToLower(k))
	}
	sort.Strings(keys)
	cats := make(map[string]string, len(opts.Categories))
	for k, v := range opts.Categories {
		cats[strings.ToLower(k)] = v
	}
	return &Aldi{
		client:     client,
		chain:      chain,
		categories: cats,
		catKeys:    keys,
		branch:     opts.Branch,
		referer:    referer,
		log:        opts.Logger,
	}
}

func (a *Aldi) Name() record.Store { return record.StoreAldi }
func (a *Aldi) Branch() string     { return a.branch }

// GetPrice maps the item's query to a category page and runs the chain
// over it.
func (a *Aldi) GetPrice(ctx context.Context, item record.Item) (*record.PriceRecord, error) {
	categoryURL, ok := a.categoryFor(item.Query)
	if !ok {
		return nil, failure(record.StoreAldi, item.Key, FailNotTracked,
			fmt.Errorf("no category mapping for %q", item.Query))
	}

	hdr := http.Header{}
	hdr.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
	hdr.Set("Accept-Language", "en-AU,en;q=0.9")
	hdr.Set("Referer", a.referer)

	body, err := a.client.Get(ctx, categoryURL, hdr, nil)
	if err != nil {
		return nil, failure(record.StoreAldi, item.Key, FailNetwork, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, failure(record.StoreAldi, item.Key, FailParse, err)
	}

	res, err := a.chain.Extract(doc, item.Query)
	if err != nil {
		return nil, failure(record.StoreAldi, item.Key, FailNoMatch, err)
	}

	rec := &record.PriceRecord{
		Store:     record.StoreAldi,
		Branch:    a.branch,
		Name:      res.Name,
		Price:     res.Price,
		WasPrice:  res.WasPrice,
		UnitPrice: res.UnitPrice,
		OnSpecial: res.OnSpecial,
		Strategy:  res.Strategy,
	}
	if err := rec.Validate(); err != nil {
		return nil, failure(record.StoreAldi, item.Key, FailParse, err)
	}
	return rec, nil
}

// categoryFor matches any configured keyword fragment appearing in the
// query text.
func (a *Aldi) categoryFor(query string) (string, bool) {
	q := strings.ToLower(query)
	for _, frag := range a.catKeys {
		if strings.Contains(q, frag) {
			return a.categories[frag], true
		}
	}
	return "", false
}
