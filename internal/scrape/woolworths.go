package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dstanway/grocermon/internal/fetch"
	"github.com/dstanway/grocermon/internal/record"
)

const defaultWoolworthsBase = "https://www.woolworths.com.au"

// Embedded app state on the product page HTML-escapes its quotes.
var wooliesUnescaper = strings.NewReplacer("&q;", `"`, "&amp;", "&")

var (
	embeddedPriceRe = regexp.MustCompile(`"Price":([\d.]+)`)
	embeddedWasRe   = regexp.MustCompile(`"WasPrice":([\d.]+)`)
	embeddedNameRe  = regexp.MustCompile(`"Name":"([^"]+)"`)
)

// Woolworths resolves items by product ID against the documented detail
// API at a fixed address. When the API misbehaves it degrades to scraping
// the JSON state embedded in the product page.
type Woolworths struct {
	client   *fetch.Client
	baseURL  string
	storeID  string
	postcode string
	branch   string
	log      zerolog.Logger
}

// WoolworthsOptions configures the adapter. BaseURL defaults to the public
// site and exists for tests.
type WoolworthsOptions struct {
	BaseURL  string
	StoreID  string
	Postcode string
	Branch   string
	Logger   zerolog.Logger
}

// NewWoolworths builds the adapter.
func NewWoolworths(client *fetch.Client, opts WoolworthsOptions) *Woolworths {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultWoolworthsBase
	}
	return &Woolworths{
		client:   client,
		baseURL:  base,
		storeID:  opts.StoreID,
		postcode: opts.Postcode,
		branch:   opts.Branch,
		log:      opts.Logger,
	}
}

func (w *Woolworths) Name() record.Store { return record.StoreWoolworths }
func (w *Woolworths) Branch() string     { return w.branch }

// GetPrice tries the detail API, then the embedded-state fallback.
func (w *Woolworths) GetPrice(ctx context.Context, item record.Item) (*record.PriceRecord, error) {
	if item.ProductID == "" {
		return nil, failure(record.StoreWoolworths, item.Key, FailNotTracked, fmt.Errorf("no product id configured"))
	}

	rec, apiErr := w.apiPrice(ctx, item)
	if apiErr == nil {
		return rec, nil
	}
	w.log.Debug().Err(apiErr).Str("item", item.Key).Msg("detail api failed, trying embedded state")

	rec, htmlErr := w.htmlPrice(ctx, item)
	if htmlErr == nil {
		return rec, nil
	}
	return nil, htmlErr
}

type wooliesProduct struct {
	Name        string           `json:"Name"`
	Price       *decimal.Decimal `json:"Price"`
	WasPrice    *decimal.Decimal `json:"WasPrice"`
	CupString   string           `json:"CupString"`
	IsOnSpecial bool             `json:"IsOnSpecial"`
}

func (w *Woolworths) apiPrice(ctx context.Context, item record.Item) (*record.PriceRecord, error) {
	hdr := w.headers("application/json")
	body, err := w.client.Get(ctx, w.baseURL+"/apis/ui/product/detail/"+item.ProductID, hdr, nil)
	if err != nil {
		return nil, failure(record.StoreWoolworths, item.Key, FailNetwork, err)
	}

	p, err := decodeWooliesPayload(body)
	if err != nil {
		return nil, failure(record.StoreWoolworths, item.Key, FailParse, err)
	}
	if p.Price == nil || !p.Price.IsPositive() {
		return nil, failure(record.StoreWoolworths, item.Key, FailParse, fmt.Errorf("payload has no price"))
	}

	name := p.Name
	if name == "" {
		name = item.Query
	}
	return &record.PriceRecord{
		Store:     record.StoreWoolworths,
		Branch:    w.branch,
		Name:      name,
		Price:     *p.Price,
		WasPrice:  p.WasPrice,
		UnitPrice: p.CupString,
		OnSpecial: p.IsOnSpecial,
		Strategy:  "detail-api",
	}, nil
}

// decodeWooliesPayload accepts the three shapes the detail API has been
// observed to serve: {"Product": {...}}, a bare product object, and a
// one-element array.
func decodeWooliesPayload(body []byte) (*wooliesProduct, error) {
	var wrapped struct {
		Product *wooliesProduct `json:"Product"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Product != nil {
		return wrapped.Product, nil
	}

	var list []wooliesProduct
	if err := json.Unmarshal(body, &list); err == nil {
		if len(list) == 0 {
			return nil, fmt.Errorf("empty product list")
		}
		return &list[0], nil
	}

	var bare wooliesProduct
	if err := json.Unmarshal(body, &bare); err != nil {
		return nil, fmt.Errorf("unrecognized payload: %w", err)
	}
	return &bare, nil
}

// htmlPrice scrapes the state blob embedded in the product details page.
func (w *Woolworths) htmlPrice(ctx context.Context, item record.Item) (*record.PriceRecord, error) {
	hdr := w.headers("text/html")
	body, err := w.client.Get(ctx, w.baseURL+"/shop/productdetails/"+item.ProductID, hdr, nil)
	if err != nil {
		return nil, failure(record.StoreWoolworths, item.Key, FailNetwork, err)
	}

	page := wooliesUnescaper.Replace(string(body))
	priceM := embeddedPriceRe.FindStringSubmatch(page)
	if priceM == nil {
		return nil, failure(record.StoreWoolworths, item.Key, FailParse, fmt.Errorf("no embedded price"))
	}
	price, err := decimal.NewFromString(priceM[1])
	if err != nil || !price.IsPositive() {
		return nil, failure(record.StoreWoolworths, item.Key, FailParse, fmt.Errorf("bad embedded price %q", priceM[1]))
	}

	rec := &record.PriceRecord{
		Store:    record.StoreWoolworths,
		Branch:   w.branch,
		Name:     item.Query,
		Price:    price,
		Strategy: "embedded-json",
	}
	if m := embeddedNameRe.FindStringSubmatch(page); m != nil {
		rec.Name = m[1]
	}
	if m := embeddedWasRe.FindStringSubmatch(page); m != nil {
		if was, err := decimal.NewFromString(m[1]); err == nil {
			rec.WasPrice = &was
			rec.OnSpecial = true
		}
	}
	return rec, nil
}

func (w *Woolworths) headers(accept string) http.Header {
	hdr := http.Header{}
	hdr.Set("Accept", accept)
	hdr.Set("Referer", w.baseURL+"/")
	if w.storeID != "" {
		cookie := "wow-store-id=" + w.storeID
		if w.postcode != "" {
			cookie += "; wow-postcode=" + w.postcode
		}
		hdr.Set("Cookie", cookie)
	}
	return hdr
}
