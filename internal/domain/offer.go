package domain

import "encoding/json"

type StoreAmount struct {
	Address string `json:"address"`
	Amount  int    `json:"amount,omitempty"`
}

type AvailabilityInfo struct {
	OfferStoreAmount []StoreAmount `json:"offer_store_amount"`
}

// OfferDetail is the per-offer detail response. Pricing, size and store
// availability live here; the category chain has to be joined back from the
// product's offer summary by ID.
type OfferDetail struct {
	ID               json.Number      `json:"id"`
	Size             string           `json:"size"`
	RetailPrice      json.Number      `json:"retail_price"`
	DiscountPrice    json.Number      `json:"discount_price"`
	AvailabilityInfo AvailabilityInfo `json:"availability_info"`
}
