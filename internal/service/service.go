package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dim272/bwn-parser/internal/client"
	"github.com/dim272/bwn-parser/internal/config"
	"github.com/dim272/bwn-parser/internal/domain"
	"github.com/dim272/bwn-parser/internal/repository"

	"golang.org/x/sync/errgroup"

	log "github.com/sirupsen/logrus"
)

var (
	ErrCityNotFound = errors.New("city not found")
	ErrNoStores     = errors.New("stores not found in city")
)

// Service runs one full crawl: resolve the city, bind the session location,
// confirm stores, paginate the catalog, fan out over offers and hand matched
// rows to the result repository.
type Service struct {
	client           client.BethowenClient
	results          repository.ResultRepository
	cfg              config.ParserConfig
	targetCategories []string

	city     domain.City
	storeIDs []int
}

func NewService(
	client client.BethowenClient,
	results repository.ResultRepository,
	cfg config.ParserConfig,
	targetCategories []string,
) *Service {
	return &Service{
		client:           client,
		results:          results,
		cfg:              cfg,
		targetCategories: targetCategories,
	}
}

func (s *Service) Run(ctx context.Context) error {
	log.Debugf("Bethowen parser starts working with the configuration: threads=%d city=%q store_address=%q categories=%v",
		s.cfg.Threads, s.cfg.CityName, s.cfg.StoreAddress, s.targetCategories)

	city, err := s.resolveCity(ctx)
	if err != nil {
		return err
	}
	s.city = city

	// Location must be bound strictly before the worker pools start; every
	// catalog and offer request depends on the session cookie it sets.
	s.client.BindLocation(ctx, city.ID.String())

	storeIDs, err := s.confirmStores(ctx)
	if err != nil {
		return err
	}
	s.storeIDs = storeIDs

	totalCount, err := s.client.ProductCount(ctx)
	if err != nil {
		return err
	}

	log.Debugf("After initialization: city_id=%s stores=%d products=%d. Data collection begins",
		city.ID, len(storeIDs), totalCount)

	if totalCount == 0 {
		return fmt.Errorf("products not found in %q: %w", s.cfg.CityName, repository.ErrNothingToExport)
	}

	products := s.fetchProducts(ctx, totalCount)
	log.Infof("✅ %d products parsed", len(products))

	s.fetchOffers(ctx, products)

	fileName, err := s.results.Export()
	if err != nil {
		return err
	}

	log.Infof("✅ %d items were saved to %q", s.results.Len(), fileName)
	return nil
}

// resolveCity finds the exact (case-sensitive) name match among the city
// search candidates. The first exact match wins.
func (s *Service) resolveCity(ctx context.Context) (domain.City, error) {
	cities, err := s.client.SearchCity(ctx, s.cfg.CityName)
	if err != nil {
		return domain.City{}, err
	}

	for _, city := range cities {
		if city.Name == s.cfg.CityName {
			return city, nil
		}
	}

	return domain.City{}, fmt.Errorf("%q: %w", s.cfg.CityName, ErrCityNotFound)
}

// confirmStores checks that the resolved city has usable stores. An empty
// list and the single-zero sentinel both mean "no stores".
func (s *Service) confirmStores(ctx context.Context) ([]int, error) {
	storeIDs, err := s.client.SearchStoreIDs(ctx)
	if err != nil {
		return nil, err
	}

	if len(storeIDs) == 0 || (len(storeIDs) == 1 && storeIDs[0] == 0) {
		return nil, fmt.Errorf("%q: %w", s.cfg.CityName, ErrNoStores)
	}

	return storeIDs, nil
}

// fetchProducts covers the full catalog with a bounded page pool and merges
// the pages. Pages whose retry budget ran out are dropped; duplicate product
// ids across pages collapse to the first occurrence.
func (s *Service) fetchProducts(ctx context.Context, totalCount int) []domain.Product {
	urls := s.client.CatalogPageURLs(totalCount)

	var (
		mu       sync.Mutex
		products []domain.Product
	)

	group := new(errgroup.Group)
	group.SetLimit(s.cfg.Threads)

	for _, pageURL := range urls {
		pageURL := pageURL
		group.Go(func() error {
			pageProducts, ok := s.client.CatalogPage(ctx, pageURL)
			if !ok {
				return nil
			}

			mu.Lock()
			products = append(products, pageProducts...)
			mu.Unlock()
			return nil
		})
	}

	group.Wait()

	return dedupProducts(products)
}

func dedupProducts(products []domain.Product) []domain.Product {
	seen := make(map[json.Number]struct{}, len(products))
	deduped := make([]domain.Product, 0, len(products))

	for _, product := range products {
		if _, ok := seen[product.ID]; ok {
			continue
		}
		seen[product.ID] = struct{}{}
		deduped = append(deduped, product)
	}

	return deduped
}

// fetchOffers expands every product into its offer details and collects the
// rows that match the target store and categories. The semaphore is shared
// across all products so in-flight offer requests never exceed the pool size.
func (s *Service) fetchOffers(ctx context.Context, products []domain.Product) {
	semaphore := make(chan struct{}, s.cfg.Threads)

	var wg sync.WaitGroup
	for _, product := range products {
		wg.Add(1)

		go func(product domain.Product) {
			defer wg.Done()
			s.expandProduct(ctx, product, semaphore)
		}(product)
	}

	wg.Wait()
}

func (s *Service) expandProduct(ctx context.Context, product domain.Product, semaphore chan struct{}) {
	offerIDs := distinctOfferIDs(product.Offers)

	details := make([]*domain.OfferDetail, len(offerIDs))

	var wg sync.WaitGroup
	for i, offerID := range offerIDs {
		wg.Add(1)

		go func(i int, offerID string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if detail, ok := s.client.OfferDetails(ctx, offerID); ok {
				details[i] = detail
			}
		}(i, offerID)
	}
	wg.Wait()

	for _, detail := range details {
		if detail == nil {
			continue
		}

		if s.matchStore(detail) && s.matchCategories(detail.ID, product) {
			s.results.Add(domain.ResultRow{
				City:          s.cfg.CityName,
				CityID:        s.city.ID.String(),
				StoreAddress:  s.cfg.StoreAddress,
				ProductID:     product.ID.String(),
				ProductName:   product.Name,
				ProductSize:   detail.Size,
				RetailPrice:   detail.RetailPrice.String(),
				DiscountPrice: detail.DiscountPrice.String(),
			})
		}
	}
}

// distinctOfferIDs collapses duplicate offer ids within one product to a
// single fetch.
func distinctOfferIDs(offers []domain.OfferRef) []string {
	seen := make(map[string]struct{}, len(offers))
	ids := make([]string, 0, len(offers))

	for _, offer := range offers {
		id := offer.ID.String()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	return ids
}

// matchStore reports whether any store carrying the offer has the configured
// address substring (case-insensitive).
func (s *Service) matchStore(detail *domain.OfferDetail) bool {
	target := strings.ToLower(s.cfg.StoreAddress)

	for _, store := range detail.AvailabilityInfo.OfferStoreAmount {
		if strings.Contains(strings.ToLower(store.Address), target) {
			return true
		}
	}

	return false
}

// matchCategories reports whether every target category name appears among
// the category-chain values of the product's offer summary with the given id.
// An empty target list matches everything.
func (s *Service) matchCategories(offerID json.Number, product domain.Product) bool {
	if len(s.targetCategories) == 0 {
		return true
	}

	chain := offerCategories(offerID, product)

	for _, category := range s.targetCategories {
		if !containsValue(chain, category) {
			return false
		}
	}

	return true
}

// offerCategories looks the offer's category chain up in the product's offer
// list; the detail response does not carry it.
func offerCategories(offerID json.Number, product domain.Product) map[string]string {
	for _, offer := range product.Offers {
		if offer.ID == offerID {
			return offer.CategoriesChain
		}
	}

	return nil
}

func containsValue(chain map[string]string, name string) bool {
	for _, value := range chain {
		if value == name {
			return true
		}
	}

	return false
}
