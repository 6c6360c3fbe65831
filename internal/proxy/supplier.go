package proxy

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
)

// Supplier hands out one proxy endpoint per request.
type Supplier interface {
	Get() string
}

type supplier struct {
	proxies []string
}

// NewSupplier creates a Supplier over a fixed proxy list. Every Get picks an
// entry uniformly at random with replacement; there is no health tracking and
// bad proxies are never removed.
func NewSupplier(proxies []string) (Supplier, error) {
	cleaned := make([]string, 0, len(proxies))
	for _, p := range proxies {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}

	if len(cleaned) == 0 {
		return nil, fmt.Errorf("proxy list is empty")
	}

	return &supplier{proxies: cleaned}, nil
}

// NewSupplierFromFile reads one proxy connection string per line.
func NewSupplierFromFile(path string) (Supplier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read proxies file: %w", err)
	}

	s, err := NewSupplier(strings.Split(string(data), "\n"))
	if err != nil {
		return nil, fmt.Errorf("proxies file %s: %w", path, err)
	}

	return s, nil
}

func (s *supplier) Get() string {
	return s.proxies[rand.Intn(len(s.proxies))]
}
