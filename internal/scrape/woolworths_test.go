package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstanway/grocermon/internal/fetch"
	"github.com/dstanway/grocermon/internal/record"
)

var milkItem = record.Item{Key: "milk_2L", Query: "full cream milk 2L", ProductID: "888140"}

func newWoolworths(srvURL string) *Woolworths {
	return NewWoolworths(fetch.New(fetch.Options{}), WoolworthsOptions{
		BaseURL:  srvURL,
		StoreID:  "3298",
		Postcode: "3163",
		Branch:   "Carnegie North (3298)",
		Logger:   zerolog.Nop(),
	})
}

func TestWoolworths_DetailAPIWrappedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/apis/ui/product/detail/888140", r.URL.Path)
		assert.Contains(t, r.Header.Get("Cookie"), "wow-store-id=3298")
		w.Write([]byte(`{"Product":{"Name":"Full Cream Milk 2L","Price":3.10,"WasPrice":3.60,"CupString":"$0.16 / 100ML","IsOnSpecial":true}}`))
	}))
	defer srv.Close()

	rec, err := newWoolworths(srv.URL).GetPrice(context.Background(), milkItem)
	require.NoError(t, err)
	assert.Equal(t, record.StoreWoolworths, rec.Store)
	assert.Equal(t, "Full Cream Milk 2L", rec.Name)
	assert.True(t, rec.Price.Equal(decimal.RequireFromString("3.10")))
	require.NotNil(t, rec.WasPrice)
	assert.True(t, rec.WasPrice.Equal(decimal.RequireFromString("3.60")))
	assert.Equal(t, "$0.16 / 100ML", rec.UnitPrice)
	assert.True(t, rec.OnSpecial)
	assert.Equal(t, "detail-api", rec.Strategy)
}

func TestWoolworths_DetailAPIArrayAndBareShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"array", `[{"Name":"Milk","Price":3.10}]`},
		{"bare", `{"Name":"Milk","Price":3.10}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			rec, err := newWoolworths(srv.URL).GetPrice(context.Background(), milkItem)
			require.NoError(t, err)
			assert.Equal(t, "Milk", rec.Name)
			assert.True(t, rec.Price.Equal(decimal.RequireFromString("3.10")))
		})
	}
}

func TestWoolworths_FallsBackToEmbeddedState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/apis/ui/product/detail/888140":
			w.WriteHeader(http.StatusInternalServerError)
		case "/shop/productdetails/888140":
			// Quotes arrive HTML-escaped in the embedded state blob.
			w.Write([]byte(`<html><script>{&q;Name&q;:&q;Full Cream Milk 2L&q;,&q;Price&q;:3.10,&q;WasPrice&q;:3.60}</script></html>`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	rec, err := newWoolworths(srv.URL).GetPrice(context.Background(), milkItem)
	require.NoError(t, err)
	assert.Equal(t, "Full Cream Milk 2L", rec.Name)
	assert.True(t, rec.Price.Equal(decimal.RequireFromString("3.10")))
	require.NotNil(t, rec.WasPrice)
	assert.True(t, rec.OnSpecial, "a was-price in the embedded state marks a markdown")
	assert.Equal(t, "embedded-json", rec.Strategy)
}

func TestWoolworths_BothPathsFailing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newWoolworths(srv.URL).GetPrice(context.Background(), milkItem)
	require.Error(t, err)
	assert.Equal(t, FailNetwork, Kind(err))
}

func TestWoolworths_EmbeddedStateWithoutPriceIsParseFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/apis/ui/product/detail/888140" {
			w.Write([]byte(`{"Product":null}`))
			return
		}
		w.Write([]byte(`<html>nothing embedded here</html>`))
	}))
	defer srv.Close()

	_, err := newWoolworths(srv.URL).GetPrice(context.Background(), milkItem)
	require.Error(t, err)
	assert.Equal(t, FailParse, Kind(err))
}

func TestWoolworths_UntrackedItem(t *testing.T) {
	_, err := newWoolworths("http://unused.invalid").GetPrice(context.Background(),
		record.Item{Key: "bread", Query: "sourdough"})
	require.Error(t, err)
	assert.Equal(t, FailNotTracked, Kind(err))
}
