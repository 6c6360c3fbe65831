package client

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/dim272/bwn-parser/internal/config"
	"github.com/dim272/bwn-parser/internal/domain"
	"github.com/dim272/bwn-parser/internal/proxy"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0"

// BethowenClient talks to the bethowen JSON API through rotating proxies.
//
// SearchCity, SearchStoreIDs and ProductCount fail with an error when the
// retry budget runs out: resolution is a hard precondition for the run.
// CatalogPage and OfferDetails report exhaustion as ok=false instead; a lost
// page or offer costs completeness, never the run.
type BethowenClient interface {
	SearchCity(ctx context.Context, cityName string) ([]domain.City, error)
	BindLocation(ctx context.Context, cityID string)
	SearchStoreIDs(ctx context.Context) ([]int, error)
	ProductCount(ctx context.Context) (int, error)
	CatalogPageURLs(totalCount int) []string
	CatalogPage(ctx context.Context, pageURL string) ([]domain.Product, bool)
	OfferDetails(ctx context.Context, offerID string) (*domain.OfferDetail, bool)
}

type bethowenClient struct {
	rl            ratelimit.Limiter
	config        config.BethowenConfig
	baseURL       string
	timeout       time.Duration
	proxySupplier proxy.Supplier

	// cityID backs the location cookie. Written once by BindLocation before
	// any worker pool starts, read-only afterwards.
	cityID string
}

func NewBethowenClient(cfg config.BethowenConfig, proxySupplier proxy.Supplier) BethowenClient {
	rl := ratelimit.NewUnlimited()
	if cfg.MaxRequestsPerSecond > 0 {
		rl = ratelimit.New(cfg.MaxRequestsPerSecond)
	}

	return &bethowenClient{
		rl:            rl,
		config:        cfg,
		baseURL:       cfg.BaseURL,
		timeout:       time.Duration(cfg.Timeout) * time.Second,
		proxySupplier: proxySupplier,
	}
}

// newAttemptClient builds a short-lived resty client for one attempt, carrying
// that attempt's proxy. Proxies are not sticky across retries.
func (c *bethowenClient) newAttemptClient() *resty.Client {
	client := resty.New().
		SetTimeout(c.timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", userAgent).
		SetTLSClientConfig(&tls.Config{
			InsecureSkipVerify: true,
		})

	if proxyURL := c.proxySupplier.Get(); proxyURL != "" {
		client.SetProxy(proxyURL)
	}

	if c.cityID != "" {
		client.SetHeader("Cookie", fmt.Sprintf("BETHOWEN_GEO_TOWN_ID=%s;", c.cityID))
	}

	return client
}

// fetchJSON GETs url and decodes the body into out. Transport errors, non-200
// statuses and malformed JSON all count as one failed attempt; after
// 1+MaxRetries attempts the URL is given up on and ok=false is returned.
func (c *bethowenClient) fetchJSON(ctx context.Context, fetchURL string, out any) bool {
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		c.rl.Take()

		log.Debugf("Getting %q (attempt %d)", fetchURL, attempt+1)

		resp, err := c.newAttemptClient().R().
			SetContext(ctx).
			Get(fetchURL)
		if err != nil {
			log.Warnf("Request error for %q: %v. Retrying", fetchURL, err)
			continue
		}

		if resp.StatusCode() != 200 {
			log.Warnf("Error <%d> for %q. Retrying", resp.StatusCode(), fetchURL)
			continue
		}

		if err := json.Unmarshal([]byte(resp.String()), out); err != nil {
			log.Warnf("JSON decode error for %q: %v. Retrying", fetchURL, err)
			continue
		}

		return true
	}

	log.Warnf("Max retry error. Skipped %q", fetchURL)
	return false
}

func (c *bethowenClient) SearchCity(ctx context.Context, cityName string) ([]domain.City, error) {
	searchURL := fmt.Sprintf("%s/api/local/v1/cities/search?term=%s&city_type=all",
		c.baseURL, url.QueryEscape(cityName))

	var response struct {
		Cities []domain.City `json:"cities"`
	}
	if !c.fetchJSON(ctx, searchURL, &response) {
		return nil, fmt.Errorf("city search failed for %q", cityName)
	}

	return response.Cities, nil
}

// BindLocation fixes the resolved city in both the server-side session and
// the client's location cookie. Fire-and-forget: a single POST with no retry,
// its response is unused. Must be called before any concurrent phase starts.
func (c *bethowenClient) BindLocation(ctx context.Context, cityID string) {
	c.cityID = cityID

	log.Debug("Setting a city_id in the session")

	c.rl.Take()

	_, err := c.newAttemptClient().R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"location_id": cityID}).
		Post(c.baseURL + "/api/local/v1/users/location")
	if err != nil {
		log.Warnf("Failed to bind location %s: %v", cityID, err)
	}
}

func (c *bethowenClient) SearchStoreIDs(ctx context.Context) ([]int, error) {
	var response struct {
		Stores []int `json:"stores"`
	}
	if !c.fetchJSON(ctx, c.baseURL+"/local/ajax/getRegionalityData.php", &response) {
		return nil, fmt.Errorf("store search failed for city %s", c.cityID)
	}

	return response.Stores, nil
}

func (c *bethowenClient) ProductCount(ctx context.Context) (int, error) {
	countURL := c.baseURL + "/api/local/v1/catalog/list?limit=1&offset=0&sort_type=popular&id[]"

	var response struct {
		Metadata struct {
			Count int `json:"count"`
		} `json:"metadata"`
	}
	if !c.fetchJSON(ctx, countURL, &response) {
		return 0, fmt.Errorf("product count request failed")
	}

	return response.Metadata.Count, nil
}

// CatalogPageURLs builds the offset-paged listing URLs covering totalCount
// products. Offset advances by exactly the configured page size, so changing
// page_size never desyncs offset from limit.
func (c *bethowenClient) CatalogPageURLs(totalCount int) []string {
	pageSize := c.config.PageSize

	var urls []string
	for offset := 0; offset < totalCount; offset += pageSize {
		urls = append(urls, fmt.Sprintf(
			"%s/api/local/v1/catalog/list?limit=%d&offset=%d&sort_type=popular&id[]",
			c.baseURL, pageSize, offset))
	}

	return urls
}

func (c *bethowenClient) CatalogPage(ctx context.Context, pageURL string) ([]domain.Product, bool) {
	var response struct {
		Products []domain.Product `json:"products"`
	}
	if !c.fetchJSON(ctx, pageURL, &response) {
		return nil, false
	}

	return response.Products, true
}

func (c *bethowenClient) OfferDetails(ctx context.Context, offerID string) (*domain.OfferDetail, bool) {
	detailsURL := fmt.Sprintf("%s/api/local/v1/catalog/offers/%s/details", c.baseURL, offerID)

	var details domain.OfferDetail
	if !c.fetchJSON(ctx, detailsURL, &details) {
		return nil, false
	}

	return &details, true
}
