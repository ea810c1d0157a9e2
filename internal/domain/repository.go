package domain

import "context"

// CatalogRepository defines the read/write interface over the shop and
// product catalog. FindCandidates is the only query the matching core
// issues; the rest serves the HTTP catalog surface.
type CatalogRepository interface {
	// FindCandidates returns products (with their shops) matching the
	// query, ordered by price ascending then shop premium status
	// descending, capped at q.Limit.
	FindCandidates(ctx context.Context, q CandidateQuery) ([]Candidate, error)

	FindShopsInBox(ctx context.Context, box BoundingBox, category string, premiumOnly bool, limit int) ([]Shop, error)
	GetShopByID(ctx context.Context, id string) (*Shop, error)
	ListShopProducts(ctx context.Context, shopID string, limit int) ([]Product, error)
	CreateShop(ctx context.Context, shop *Shop) error

	ListProducts(ctx context.Context, filter ProductFilter) ([]Candidate, int, error)
	CreateProduct(ctx context.Context, product *Product) error
}

// ScanHistoryRepository persists scan snapshots and serves analytics.
type ScanHistoryRepository interface {
	Save(ctx context.Context, record *ScanRecord) error
	List(ctx context.Context, page, limit int) ([]ScanRecord, int, error)

	// SavingsTotals returns the scan count plus the sum and mean of
	// potential savings across all recorded scans.
	SavingsTotals(ctx context.Context) (totalScans int, totalSavings, averageSavings float64, err error)

	// RecentSnapshots returns the typed snapshots of the most recent
	// scans, newest first.
	RecentSnapshots(ctx context.Context, limit int) ([]ScanSnapshot, error)
}

// ExtractionClient defines the interface to the external invoice
// extraction AI service. The service is a black box taking an invoice
// image and returning raw line items.
type ExtractionClient interface {
	ExtractItems(ctx context.Context, imagePath string) ([]ScannedItem, error)
	HealthCheck(ctx context.Context) bool
}
