package domain

import "time"

// ScannedItem is one line item extracted from an invoice by the
// external extraction service. Immutable once created.
type ScannedItem struct {
	Name           string  `json:"name"`
	NormalizedName string  `json:"normalizedName"`
	Price          float64 `json:"price"`
	Quantity       int     `json:"quantity"`
	Category       string  `json:"category,omitempty"`
	Confidence     float64 `json:"confidence,omitempty"` // 0-1
}

// AlternativeShop is the denormalized shop subset carried in an Alternative.
type AlternativeShop struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Rating    float64 `json:"rating,omitempty"`
	IsPremium bool    `json:"isPremium"`
	Category  string  `json:"category,omitempty"`
}

// AlternativeProduct is the denormalized product subset carried in an Alternative.
type AlternativeProduct struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category,omitempty"`
	Brand    string  `json:"brand,omitempty"`
}

// Alternative is a validated, ranked substitute recommendation. By
// construction Savings > 0, SavingsPercentage >= the configured minimum,
// and DistanceKm <= the request radius. Never mutated after creation.
type Alternative struct {
	OriginalItem      string             `json:"originalItem"`
	Shop              AlternativeShop    `json:"shop"`
	Product           AlternativeProduct `json:"product"`
	Savings           float64            `json:"savings"`
	SavingsPercentage float64            `json:"savingsPercentage"`
	DistanceKm        float64            `json:"distance"`
}

// ScanSummary aggregates one scan's outcome for the response payload.
type ScanSummary struct {
	ItemsFound        int     `json:"itemsFound"`
	AlternativesFound int     `json:"alternativesFound"`
	PotentialSavings  float64 `json:"potentialSavings"`
	ConfidenceScore   float64 `json:"confidenceScore"`
	ProcessingTimeMs  int64   `json:"processingTimeMs"`
}

// ScanRequest carries the inputs of one invoice scan.
type ScanRequest struct {
	ImagePath    string
	UserLocation GeoPoint
	RadiusKm     float64
	PremiumOnly  bool
}

// ScanResult is the full response of one invoice scan.
type ScanResult struct {
	ScanID       string        `json:"scanId"`
	ScannedItems []ScannedItem `json:"scannedItems"`
	Alternatives []Alternative `json:"alternatives"`
	Summary      ScanSummary   `json:"summary"`
}

// ScanSnapshot is the typed persisted form of a scan result. Analytics
// reads categories out of it without any dynamic JSON traversal.
type ScanSnapshot struct {
	ScannedItems []ScannedItem `json:"scannedItems"`
	Alternatives []Alternative `json:"alternatives"`
	Summary      ScanSummary   `json:"summary"`
}

// ScanRecord is one persisted scan history row.
type ScanRecord struct {
	ID                string       `json:"id"`
	ImagePath         string       `json:"imagePath"`
	Snapshot          ScanSnapshot `json:"scanResult"`
	ItemsFound        int          `json:"itemsFound"`
	AlternativesFound int          `json:"alternativesFound"`
	PotentialSavings  float64      `json:"potentialSavings"`
	ConfidenceScore   float64      `json:"confidenceScore"`
	UserLocation      GeoPoint     `json:"userLocation"`
	CreatedAt         time.Time    `json:"createdAt"`
}

// CategoryCount is one entry of the most-scanned-categories ranking.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// AnalyticsStats aggregates scan history for the dashboard.
type AnalyticsStats struct {
	TotalScans            int             `json:"totalScans"`
	TotalSavings          float64         `json:"totalSavings"`
	AverageSavings        float64         `json:"averageSavings"`
	MostScannedCategories []CategoryCount `json:"mostScannedCategories"`
}
