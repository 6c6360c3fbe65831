package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/dim272/bwn-parser/internal/config"

	"github.com/stretchr/testify/require"
)

// noProxySupplier lets client tests hit httptest servers directly.
type noProxySupplier struct{}

func (noProxySupplier) Get() string { return "" }

func newTestClient(baseURL string) BethowenClient {
	return NewBethowenClient(config.BethowenConfig{
		BaseURL:    baseURL,
		Timeout:    2,
		MaxRetries: 3,
		PageSize:   100,
	}, noProxySupplier{})
}

func TestFetchExhaustsRetryBudget(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	_, ok := c.CatalogPage(context.Background(), srv.URL+"/api/local/v1/catalog/list?limit=100&offset=0")
	require.False(t, ok)
	require.EqualValues(t, 4, attempts.Load(), "one attempt plus three retries")
}

func TestFetchRetriesMalformedJSON(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		fmt.Fprint(w, "<html>not json</html>")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	_, ok := c.OfferDetails(context.Background(), "501")
	require.False(t, ok)
	require.EqualValues(t, 4, attempts.Load())
}

func TestFetchRecoversAfterFailure(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"id":501,"size":"2.5 kg","retail_price":100,"discount_price":90,
			"availability_info":{"offer_store_amount":[{"address":"Moscow, Lenina st 5","amount":3}]}}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	details, ok := c.OfferDetails(context.Background(), "501")
	require.True(t, ok)
	require.Equal(t, "2.5 kg", details.Size)
	require.Equal(t, "100", details.RetailPrice.String())
	require.Len(t, details.AvailabilityInfo.OfferStoreAmount, 1)
}

func TestSearchCity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/local/v1/cities/search", r.URL.Path)
		require.Equal(t, "Springfield", r.URL.Query().Get("term"))
		fmt.Fprint(w, `{"cities":[{"id":77,"name":"Springfield"},{"id":78,"name":"Springville"}]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	cities, err := c.SearchCity(context.Background(), "Springfield")
	require.NoError(t, err)
	require.Len(t, cities, 2)
	require.Equal(t, "77", cities[0].ID.String())
}

func TestBindLocationSetsCookie(t *testing.T) {
	var sawPost, sawCookie atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/local/v1/users/location":
			require.Equal(t, http.MethodPost, r.Method)
			sawPost.Store(true)
			fmt.Fprint(w, `{}`)
		case "/local/ajax/getRegionalityData.php":
			if cookie, err := r.Cookie("BETHOWEN_GEO_TOWN_ID"); err == nil && cookie.Value == "77" {
				sawCookie.Store(true)
			}
			fmt.Fprint(w, `{"stores":[5,6]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.BindLocation(context.Background(), "77")

	storeIDs, err := c.SearchStoreIDs(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{5, 6}, storeIDs)
	require.True(t, sawPost.Load())
	require.True(t, sawCookie.Load())
}

func TestProductCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "1", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"metadata":{"count":250},"products":[]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	count, err := c.ProductCount(context.Background())
	require.NoError(t, err)
	require.Equal(t, 250, count)
}

func TestCatalogPageURLs(t *testing.T) {
	c := newTestClient("https://example.test")

	urls := c.CatalogPageURLs(250)
	require.Len(t, urls, 3)
	for i, offset := range []int{0, 100, 200} {
		require.Contains(t, urls[i], fmt.Sprintf("limit=100&offset=%d", offset))
	}

	require.Empty(t, c.CatalogPageURLs(0))
	require.Len(t, c.CatalogPageURLs(100), 1)
	require.Len(t, c.CatalogPageURLs(101), 2)
}
