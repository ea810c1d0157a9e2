package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/logger"
	"github.com/pricelens/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	exitCode := m.Run()

	os.Exit(exitCode)
}

// --- Mock repositories and clients ---

// mockCatalogRepo is an in-memory implementation of domain.CatalogRepository
type mockCatalogRepo struct {
	candidates []domain.Candidate
	shops      []domain.Shop
	products   []domain.Candidate
}

func (m *mockCatalogRepo) FindCandidates(ctx context.Context, q domain.CandidateQuery) ([]domain.Candidate, error) {
	return m.candidates, nil
}

func (m *mockCatalogRepo) FindShopsInBox(ctx context.Context, box domain.BoundingBox, category string, premiumOnly bool, limit int) ([]domain.Shop, error) {
	return m.shops, nil
}

func (m *mockCatalogRepo) GetShopByID(ctx context.Context, id string) (*domain.Shop, error) {
	for i := range m.shops {
		if m.shops[i].ID == id {
			return &m.shops[i], nil
		}
	}
	return nil, domain.ErrShopNotFound
}

func (m *mockCatalogRepo) ListShopProducts(ctx context.Context, shopID string, limit int) ([]domain.Product, error) {
	var products []domain.Product
	for _, c := range m.products {
		if c.Product.ShopID == shopID {
			products = append(products, c.Product)
		}
	}
	return products, nil
}

func (m *mockCatalogRepo) CreateShop(ctx context.Context, shop *domain.Shop) error {
	m.shops = append(m.shops, *shop)
	return nil
}

func (m *mockCatalogRepo) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Candidate, int, error) {
	return m.products, len(m.products), nil
}

func (m *mockCatalogRepo) CreateProduct(ctx context.Context, product *domain.Product) error {
	m.products = append(m.products, domain.Candidate{Product: *product})
	return nil
}

// mockHistoryRepo is an in-memory implementation of domain.ScanHistoryRepository
type mockHistoryRepo struct {
	records []domain.ScanRecord
}

func (m *mockHistoryRepo) Save(ctx context.Context, record *domain.ScanRecord) error {
	m.records = append(m.records, *record)
	return nil
}

func (m *mockHistoryRepo) List(ctx context.Context, page, limit int) ([]domain.ScanRecord, int, error) {
	return m.records, len(m.records), nil
}

func (m *mockHistoryRepo) SavingsTotals(ctx context.Context) (int, float64, float64, error) {
	total := 0.0
	for _, r := range m.records {
		total += r.PotentialSavings
	}
	avg := 0.0
	if len(m.records) > 0 {
		avg = total / float64(len(m.records))
	}
	return len(m.records), total, avg, nil
}

func (m *mockHistoryRepo) RecentSnapshots(ctx context.Context, limit int) ([]domain.ScanSnapshot, error) {
	var snapshots []domain.ScanSnapshot
	for i := len(m.records) - 1; i >= 0 && len(snapshots) < limit; i-- {
		snapshots = append(snapshots, m.records[i].Snapshot)
	}
	return snapshots, nil
}

// mockExtractionClient is a mock implementation of domain.ExtractionClient
type mockExtractionClient struct {
	items []domain.ScannedItem
	err   error
}

func (m *mockExtractionClient) ExtractItems(ctx context.Context, imagePath string) ([]domain.ScannedItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.items, nil
}

func (m *mockExtractionClient) HealthCheck(ctx context.Context) bool {
	return true
}

// setupTestRouter creates a test router with mocked storage and extraction
func setupTestRouter(catalog *mockCatalogRepo, history *mockHistoryRepo, extraction *mockExtractionClient) *gin.Engine {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:*"},
		},
	}

	log := logger.NewWithWriter(io.Discard)
	matching := usecase.NewMatchingService(catalog, log, usecase.MatchConfig{})
	scans := usecase.NewScanService(extraction, matching, history, log)
	catalogSvc := usecase.NewCatalogService(catalog, log, 10)
	analytics := usecase.NewAnalyticsService(history, log)

	handler := NewHandler(scans, catalogSvc, analytics, "")
	return SetupRouter(cfg, handler)
}

func emptyTestRouter() *gin.Engine {
	return setupTestRouter(&mockCatalogRepo{}, &mockHistoryRepo{}, &mockExtractionClient{})
}

// invoiceRequest builds a multipart scan request with the given form fields
func invoiceRequest(t *testing.T, fields map[string]string, withImage bool) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("WriteField(%s): %v", key, err)
		}
	}
	if withImage {
		part, err := writer.CreateFormFile("image", "invoice.jpg")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		part.Write([]byte("fake image bytes"))
	}
	writer.Close()

	req, _ := http.NewRequest("POST", "/api/v1/scan/invoice", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := emptyTestRouter()

		req, _ := http.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "pricelens-backend" {
			t.Errorf("service = %v, want pricelens-backend", response["service"])
		}
		version, ok := response["version"].(string)
		if !ok || strings.TrimSpace(version) == "" {
			t.Errorf("version = %v, want non-empty string", response["version"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := emptyTestRouter()

		methods := []string{"POST", "PUT", "DELETE", "PATCH"}

		for _, method := range methods {
			req, _ := http.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

// TestScanInvoiceEndpoint tests the invoice scan endpoint end to end
// against mocked extraction and catalog backends.
func TestScanInvoiceEndpoint(t *testing.T) {
	t.Run("returns alternatives for a scanned invoice", func(t *testing.T) {
		extraction := &mockExtractionClient{
			items: []domain.ScannedItem{
				{Name: "Coffee", NormalizedName: "coffee", Price: 5.00, Quantity: 1, Confidence: 0.9},
			},
		}
		catalog := &mockCatalogRepo{
			candidates: []domain.Candidate{
				{
					Product: domain.Product{ID: "p1", ShopID: "s1", Name: "House Coffee", NormalizedName: "house coffee", Price: 4.00, IsAvailable: true},
					Shop:    domain.Shop{ID: "s1", Name: "Corner Mart", Location: domain.GeoPoint{Latitude: 0, Longitude: 0}},
				},
			},
		}
		history := &mockHistoryRepo{}
		router := setupTestRouter(catalog, history, extraction)

		req := invoiceRequest(t, map[string]string{
			"latitude":  "0",
			"longitude": "0",
		}, true)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
		}

		var response struct {
			Success bool              `json:"success"`
			Data    domain.ScanResult `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if !response.Success {
			t.Error("success = false, want true")
		}
		if response.Data.Summary.ItemsFound != 1 {
			t.Errorf("itemsFound = %d, want 1", response.Data.Summary.ItemsFound)
		}
		if len(response.Data.Alternatives) != 1 {
			t.Fatalf("alternatives = %d, want 1", len(response.Data.Alternatives))
		}
		if response.Data.Alternatives[0].Savings != 1.00 {
			t.Errorf("savings = %v, want 1.00", response.Data.Alternatives[0].Savings)
		}
		if len(history.records) != 1 {
			t.Errorf("persisted records = %d, want 1", len(history.records))
		}
	})

	t.Run("returns 400 when latitude is missing", func(t *testing.T) {
		router := emptyTestRouter()

		req := invoiceRequest(t, map[string]string{"longitude": "127.0"}, true)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("returns 400 when image is missing", func(t *testing.T) {
		router := emptyTestRouter()

		req := invoiceRequest(t, map[string]string{
			"latitude":  "37.5",
			"longitude": "127.0",
		}, false)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("returns 400 for out-of-range coordinates", func(t *testing.T) {
		router := emptyTestRouter()

		req := invoiceRequest(t, map[string]string{
			"latitude":  "95.0",
			"longitude": "127.0",
		}, true)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestScanHistoryEndpoint tests the scan history listing
func TestScanHistoryEndpoint(t *testing.T) {
	t.Run("returns records with pagination metadata", func(t *testing.T) {
		history := &mockHistoryRepo{
			records: []domain.ScanRecord{
				{ID: "scan-1", ItemsFound: 2, PotentialSavings: 3.50},
			},
		}
		router := setupTestRouter(&mockCatalogRepo{}, history, &mockExtractionClient{})

		req, _ := http.NewRequest("GET", "/api/v1/scan/history?page=1&limit=10", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		pagination, ok := response["pagination"].(map[string]interface{})
		if !ok {
			t.Fatalf("pagination missing from response: %v", response)
		}
		if pagination["total"] != float64(1) {
			t.Errorf("total = %v, want 1", pagination["total"])
		}
	})
}

// TestNearbyShopsEndpoint tests the shop proximity search
func TestNearbyShopsEndpoint(t *testing.T) {
	t.Run("returns shops sorted by distance", func(t *testing.T) {
		catalog := &mockCatalogRepo{
			shops: []domain.Shop{
				{ID: "far", Name: "Far Mart", Location: domain.GeoPoint{Latitude: 0.05, Longitude: 0}},
				{ID: "near", Name: "Near Mart", Location: domain.GeoPoint{Latitude: 0.01, Longitude: 0}},
			},
		}
		router := setupTestRouter(catalog, &mockHistoryRepo{}, &mockExtractionClient{})

		req, _ := http.NewRequest("GET", "/api/v1/shops/nearby?lat=0&lng=0&radius=10", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response struct {
			Success bool                      `json:"success"`
			Data    []domain.ShopWithDistance `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if len(response.Data) != 2 {
			t.Fatalf("shops = %d, want 2", len(response.Data))
		}
		if response.Data[0].ID != "near" {
			t.Errorf("first shop = %s, want near", response.Data[0].ID)
		}
	})

	t.Run("returns 400 when lat is missing", func(t *testing.T) {
		router := emptyTestRouter()

		req, _ := http.NewRequest("GET", "/api/v1/shops/nearby?lng=127.0", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestShopEndpoints tests shop detail retrieval and creation
func TestShopEndpoints(t *testing.T) {
	t.Run("returns shop with its products", func(t *testing.T) {
		catalog := &mockCatalogRepo{
			shops: []domain.Shop{
				{ID: "s1", Name: "Corner Mart", Location: domain.GeoPoint{Latitude: 37.5, Longitude: 127.0}},
			},
			products: []domain.Candidate{
				{Product: domain.Product{ID: "p1", ShopID: "s1", Name: "Coffee", Price: 4.00, IsAvailable: true}},
			},
		}
		router := setupTestRouter(catalog, &mockHistoryRepo{}, &mockExtractionClient{})

		req, _ := http.NewRequest("GET", "/api/v1/shops/s1", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("returns 404 for unknown shop", func(t *testing.T) {
		router := emptyTestRouter()

		req, _ := http.NewRequest("GET", "/api/v1/shops/missing", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("creates a shop", func(t *testing.T) {
		catalog := &mockCatalogRepo{}
		router := setupTestRouter(catalog, &mockHistoryRepo{}, &mockExtractionClient{})

		payload := `{"name":"Corner Mart","latitude":37.5,"longitude":127.0,"rating":4.2}`
		req, _ := http.NewRequest("POST", "/api/v1/shops", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("Status = %d, want %d, body: %s", w.Code, http.StatusCreated, w.Body.String())
		}
		if len(catalog.shops) != 1 {
			t.Errorf("stored shops = %d, want 1", len(catalog.shops))
		}
		if catalog.shops[0].ID == "" {
			t.Error("expected shop to be assigned an id")
		}
	})

	t.Run("returns 400 for shop without name", func(t *testing.T) {
		router := emptyTestRouter()

		payload := `{"latitude":37.5,"longitude":127.0}`
		req, _ := http.NewRequest("POST", "/api/v1/shops", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("returns 400 for invalid JSON", func(t *testing.T) {
		router := emptyTestRouter()

		req, _ := http.NewRequest("POST", "/api/v1/shops", strings.NewReader("{invalid json}"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestProductEndpoints tests product listing and creation
func TestProductEndpoints(t *testing.T) {
	t.Run("lists products with pagination metadata", func(t *testing.T) {
		catalog := &mockCatalogRepo{
			products: []domain.Candidate{
				{Product: domain.Product{ID: "p1", Name: "Coffee", Price: 4.00}},
			},
		}
		router := setupTestRouter(catalog, &mockHistoryRepo{}, &mockExtractionClient{})

		req, _ := http.NewRequest("GET", "/api/v1/products?search=coffee", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response["pagination"] == nil {
			t.Error("expected pagination field in response")
		}
	})

	t.Run("creates a product with computed keywords", func(t *testing.T) {
		catalog := &mockCatalogRepo{
			shops: []domain.Shop{
				{ID: "s1", Name: "Corner Mart", Location: domain.GeoPoint{Latitude: 37.5, Longitude: 127.0}},
			},
		}
		router := setupTestRouter(catalog, &mockHistoryRepo{}, &mockExtractionClient{})

		payload := `{"shopId":"s1","name":"Premium Colombian Coffee","price":9.99,"category":"beverages"}`
		req, _ := http.NewRequest("POST", "/api/v1/products", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("Status = %d, want %d, body: %s", w.Code, http.StatusCreated, w.Body.String())
		}
		if len(catalog.products) != 1 {
			t.Fatalf("stored products = %d, want 1", len(catalog.products))
		}
		stored := catalog.products[0].Product
		if stored.NormalizedName != "premium colombian coffee" {
			t.Errorf("normalizedName = %q, want %q", stored.NormalizedName, "premium colombian coffee")
		}
		if len(stored.Keywords) == 0 {
			t.Error("expected keywords to be computed at creation")
		}
	})

	t.Run("returns 400 for product under unknown shop", func(t *testing.T) {
		router := emptyTestRouter()

		payload := `{"shopId":"missing","name":"Coffee","price":4.00}`
		req, _ := http.NewRequest("POST", "/api/v1/products", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("returns 400 for non-positive price", func(t *testing.T) {
		router := emptyTestRouter()

		payload := `{"shopId":"s1","name":"Coffee","price":0}`
		req, _ := http.NewRequest("POST", "/api/v1/products", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestAnalyticsEndpoint tests the analytics aggregation endpoint
func TestAnalyticsEndpoint(t *testing.T) {
	t.Run("returns totals and category ranking", func(t *testing.T) {
		history := &mockHistoryRepo{
			records: []domain.ScanRecord{
				{
					ID:               "scan-1",
					PotentialSavings: 2.00,
					Snapshot: domain.ScanSnapshot{
						ScannedItems: []domain.ScannedItem{
							{Name: "Milk", Category: "dairy"},
							{Name: "Bread", Category: "bakery"},
						},
					},
				},
				{
					ID:               "scan-2",
					PotentialSavings: 4.00,
					Snapshot: domain.ScanSnapshot{
						ScannedItems: []domain.ScannedItem{
							{Name: "Cheese", Category: "dairy"},
						},
					},
				},
			},
		}
		router := setupTestRouter(&mockCatalogRepo{}, history, &mockExtractionClient{})

		req, _ := http.NewRequest("GET", "/api/v1/analytics/stats", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response struct {
			Success bool                  `json:"success"`
			Data    domain.AnalyticsStats `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if response.Data.TotalScans != 2 {
			t.Errorf("totalScans = %d, want 2", response.Data.TotalScans)
		}
		if response.Data.TotalSavings != 6.00 {
			t.Errorf("totalSavings = %v, want 6.00", response.Data.TotalSavings)
		}
		if len(response.Data.MostScannedCategories) == 0 || response.Data.MostScannedCategories[0].Category != "dairy" {
			t.Errorf("top category = %v, want dairy", response.Data.MostScannedCategories)
		}
	})
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	t.Run("health endpoint has CORS for localhost", func(t *testing.T) {
		router := emptyTestRouter()

		req, _ := http.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		gotOrigin := w.Header().Get("Access-Control-Allow-Origin")
		if gotOrigin != "http://localhost:3000" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", gotOrigin, "http://localhost:3000")
		}

		gotCreds := w.Header().Get("Access-Control-Allow-Credentials")
		if gotCreds != "true" {
			t.Errorf("Access-Control-Allow-Credentials = %q, want %q", gotCreds, "true")
		}
	})
}

// TestRecoveryIntegration tests panic recovery
func TestRecoveryIntegration(t *testing.T) {
	t.Run("recovers from panic without crashing server", func(t *testing.T) {
		router := emptyTestRouter()

		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		req, _ := http.NewRequest("GET", "/panic", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		// Gin's default recovery returns 500
		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})
}

// TestAPIVersioning tests that API v1 routes are correctly versioned
func TestAPIVersioning(t *testing.T) {
	t.Run("non-versioned routes return 404", func(t *testing.T) {
		router := emptyTestRouter()

		req, _ := http.NewRequest("GET", "/api/shops/nearby", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}
