package domain

import "encoding/json"

// OfferRef is the offer summary embedded in a catalog listing. The category
// chain lives here, not on the detail response.
type OfferRef struct {
	ID              json.Number       `json:"id"`
	CategoriesChain map[string]string `json:"categories_chain"`
}

type Product struct {
	ID     json.Number `json:"id"`
	Name   string      `json:"name"`
	Offers []OfferRef  `json:"offers"`
}
