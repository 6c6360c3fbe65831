package domain

// ResultRow is one exported line: a (product, offer) pair that matched both
// the store address and the target categories.
type ResultRow struct {
	City          string `json:"city"`
	CityID        string `json:"city_id"`
	StoreAddress  string `json:"store_address"`
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	ProductSize   string `json:"product_size"`
	RetailPrice   string `json:"retail_price"`
	DiscountPrice string `json:"discount_price"`
}

// ResultColumns is the fixed CSV column order.
var ResultColumns = []string{
	"city", "city_id", "store_address",
	"product_id", "product_name", "product_size",
	"retail_price", "discount_price",
}

// Record returns the row's values in ResultColumns order.
func (r ResultRow) Record() []string {
	return []string{
		r.City, r.CityID, r.StoreAddress,
		r.ProductID, r.ProductName, r.ProductSize,
		r.RetailPrice, r.DiscountPrice,
	}
}
