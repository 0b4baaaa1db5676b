package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dstanway/grocermon/internal/endpoint"
	"github.com/dstanway/grocermon/internal/fetch"
	"github.com/dstanway/grocermon/internal/record"
)

const colesAPIPath = "/api/2.0/market/products"

// Coles searches a product API whose base address rotates without notice.
// The request ladder mirrors the two ways a cached context goes stale:
// first drop the store scope (the store ID may be invalid), then drop the
// cached address (the host may have rotated) and rediscover.
type Coles struct {
	client   *fetch.Client
	resolver *endpoint.Resolver
	storeID  string
	branch   string
	origin   string
	log      zerolog.Logger
}

// ColesOptions configures the adapter. Origin defaults to the public site
// and is sent as Origin/Referer; some gateway configurations reject
// requests without it.
type ColesOptions struct {
	StoreID string
	Branch  string
	Origin  string
	Logger  zerolog.Logger
}

// NewColes builds the adapter over the shared transport and a resolver.
func NewColes(client *fetch.Client, resolver *endpoint.Resolver, opts ColesOptions) *Coles {
	origin := strings.TrimRight(opts.Origin, "/")
	if origin == "" {
		origin = "https://www.coles.com.au"
	}
	return &Coles{
		client:   client,
		resolver: resolver,
		storeID:  opts.StoreID,
		branch:   opts.Branch,
		origin:   origin,
		log:      opts.Logger,
	}
}

func (c *Coles) Name() record.Store { return record.StoreColes }
func (c *Coles) Branch() string     { return c.branch }

// GetPrice walks the retry ladder: store-scoped request, unscoped request,
// then forced endpoint rediscovery plus one final unscoped request.
func (c *Coles) GetPrice(ctx context.Context, item record.Item) (*record.PriceRecord, error) {
	base, err := c.resolver.Resolve(ctx, false)
	if err != nil {
		return nil, failure(record.StoreColes, item.Key, FailNetwork, err)
	}

	rec, err := c.fetchOnce(ctx, base, item, c.storeID)
	if err == nil {
		return rec, nil
	}
	c.log.Debug().Err(err).Str("item", item.Key).Msg("store-scoped request failed, retrying unscoped")

	rec, err = c.fetchOnce(ctx, base, item, "")
	if err == nil {
		return rec, nil
	}

	// The cached address itself may be stale. Invalidate, rediscover, and
	// try once more.
	c.log.Info().Err(err).Str("item", item.Key).Msg("endpoint may have rotated, forcing rediscovery")
	if ierr := c.resolver.Invalidate(); ierr != nil {
		c.log.Warn().Err(ierr).Msg("endpoint cache invalidation failed")
	}
	base, rerr := c.resolver.Resolve(ctx, true)
	if rerr != nil {
		return nil, failure(record.StoreColes, item.Key, FailStaleEndpoint, rerr)
	}
	rec, err = c.fetchOnce(ctx, base, item, "")
	if err == nil {
		return rec, nil
	}
	return nil, failure(record.StoreColes, item.Key, FailStaleEndpoint, err)
}

type colesPricing struct {
	Now  *decimal.Decimal `json:"now"`
	Was  *decimal.Decimal `json:"was"`
	Unit struct {
		OfMeasurePrice string `json:"ofMeasurePrice"`
	} `json:"unit"`
	PromotionType string `json:"promotionType"`
}

type colesProduct struct {
	Name    string           `json:"name"`
	Price   *decimal.Decimal `json:"price"`
	Pricing *colesPricing    `json:"pricing"`
}

func (c *Coles) fetchOnce(ctx context.Context, base string, item record.Item, storeID string) (*record.PriceRecord, error) {
	params := url.Values{}
	params.Set("q", item.Query)
	params.Set("page", "1")
	params.Set("pageSize", "5")
	if storeID != "" {
		params.Set("storeId", storeID)
	}

	hdr := http.Header{}
	hdr.Set("Accept", "application/json, text/plain, */*")
	hdr.Set("Accept-Language", "en-AU,en;q=0.9")
	hdr.Set("Origin", c.origin)
	hdr.Set("Referer", c.origin+"/")

	body, err := c.client.Get(ctx, strings.TrimRight(base, "/")+colesAPIPath, hdr, params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Results []colesProduct `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode search payload: %w", err)
	}
	if len(payload.Results) == 0 {
		return nil, fmt.Errorf("empty result set for %q", item.Query)
	}

	return c.shape(payload.Results[0], item)
}

// shape converts the first search result to a canonical record.
func (c *Coles) shape(p colesProduct, item record.Item) (*record.PriceRecord, error) {
	var price *decimal.Decimal
	if p.Pricing != nil && p.Pricing.Now != nil {
		price = p.Pricing.Now
	} else if p.Price != nil {
		price = p.Price
	}
	if price == nil || !price.IsPositive() {
		return nil, fmt.Errorf("result for %q has no usable price", item.Query)
	}

	name := p.Name
	if name == "" {
		name = item.Query
	}
	rec := &record.PriceRecord{
		Store:    record.StoreColes,
		Branch:   c.branch,
		Name:     name,
		Price:    *price,
		Strategy: "search-api",
	}
	if p.Pricing != nil {
		rec.WasPrice = p.Pricing.Was
		rec.UnitPrice = p.Pricing.Unit.OfMeasurePrice
		rec.OnSpecial = p.Pricing.PromotionType != ""
	}
	return rec, nil
}
