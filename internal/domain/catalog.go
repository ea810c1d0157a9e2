package domain

// GeoPoint is a WGS84 coordinate pair. Immutable value type.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Shop represents a physical or logical seller in the catalog.
type Shop struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Address   string   `json:"address,omitempty"`
	Location  GeoPoint `json:"location"`
	Rating    float64  `json:"rating,omitempty"` // 0-5
	IsPremium bool     `json:"isPremium"`
	Category  string   `json:"category,omitempty"`
}

// Product is a sellable item tied to exactly one shop.
// NormalizedName and Keywords are computed once at creation time and
// never re-derived on read.
type Product struct {
	ID             string   `json:"id"`
	ShopID         string   `json:"shopId"`
	Name           string   `json:"name"`
	NormalizedName string   `json:"normalizedName"`
	Price          float64  `json:"price"`
	Category       string   `json:"category,omitempty"`
	Brand          string   `json:"brand,omitempty"`
	Keywords       []string `json:"keywords"`
	IsAvailable    bool     `json:"isAvailable"`
}

// Candidate is a product joined with its shop, as returned by the
// catalog's candidate query. Order matters: the ranker preserves it.
type Candidate struct {
	Product Product `json:"product"`
	Shop    Shop    `json:"shop"`
}

// ShopWithDistance annotates a shop with its exact distance from a
// query location, for the nearby-shops listing.
type ShopWithDistance struct {
	Shop
	DistanceKm float64 `json:"distance"`
}

// BoundingBox is a rectangular lat/lng pre-filter approximating a
// circular search radius. It may include out-of-range points; it must
// never exclude a point that is truly within the radius.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// CandidateQuery describes one candidate retrieval for a scanned item.
// A product matches when any of the three match strategies holds
// (normalized-name substring, keyword overlap, category equality) and
// every hard filter holds (available, strictly cheaper, shop inside the
// bounding box, premium when PremiumOnly).
type CandidateQuery struct {
	NormalizedName string
	Keywords       []string
	Category       string // empty disables the category strategy
	MaxPrice       float64
	Box            BoundingBox
	PremiumOnly    bool
	Limit          int
}

// ProductFilter describes the product listing query.
type ProductFilter struct {
	Category string
	Search   string
	MinPrice float64
	MaxPrice float64
	Page     int
	Limit    int
}
