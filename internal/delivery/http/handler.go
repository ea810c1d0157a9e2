package http

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	scans     *usecase.ScanService
	catalog   *usecase.CatalogService
	analytics *usecase.AnalyticsService
	uploadDir string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	scans *usecase.ScanService,
	catalog *usecase.CatalogService,
	analytics *usecase.AnalyticsService,
	uploadDir string,
) *Handler {
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	return &Handler{
		scans:     scans,
		catalog:   catalog,
		analytics: analytics,
		uploadDir: uploadDir,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pricelens-backend",
		"version": "1.0.0",
	})
}

// ScanInvoice accepts an invoice image plus the user's location and
// returns scanned items with cheaper in-range alternatives.
func (h *Handler) ScanInvoice(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.PostForm("latitude"), 64)
	if err != nil {
		badRequest(c, "latitude is required and must be a number")
		return
	}
	lng, err := strconv.ParseFloat(c.PostForm("longitude"), 64)
	if err != nil {
		badRequest(c, "longitude is required and must be a number")
		return
	}

	radius := 0.0
	if v := c.PostForm("radius"); v != "" {
		if radius, err = strconv.ParseFloat(v, 64); err != nil {
			badRequest(c, "radius must be a number")
			return
		}
	}
	premiumOnly := c.PostForm("premiumOnly") == "true"

	file, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "image file is required")
		return
	}

	imagePath := filepath.Join(h.uploadDir, fmt.Sprintf("%s%s", uuid.NewString(), filepath.Ext(file.Filename)))
	if err := c.SaveUploadedFile(file, imagePath); err != nil {
		serverError(c, "failed to store uploaded image")
		return
	}
	defer os.Remove(imagePath)

	result, err := h.scans.ProcessInvoice(c.Request.Context(), domain.ScanRequest{
		ImagePath:    imagePath,
		UserLocation: domain.GeoPoint{Latitude: lat, Longitude: lng},
		RadiusKm:     radius,
		PremiumOnly:  premiumOnly,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidLocation) {
			badRequest(c, "location coordinates are out of range")
			return
		}
		serverError(c, "failed to process invoice")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// ScanHistory returns a page of past scans.
func (h *Handler) ScanHistory(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	records, total, err := h.scans.GetScanHistory(c.Request.Context(), page, limit)
	if err != nil {
		serverError(c, "failed to retrieve scan history")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    records,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// NearbyShops returns shops within a radius of the given location.
func (h *Handler) NearbyShops(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		badRequest(c, "lat is required and must be a number")
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		badRequest(c, "lng is required and must be a number")
		return
	}
	radius, _ := strconv.ParseFloat(c.DefaultQuery("radius", "0"), 64)

	shops, err := h.catalog.NearbyShops(
		c.Request.Context(),
		domain.GeoPoint{Latitude: lat, Longitude: lng},
		radius,
		c.Query("category"),
		c.Query("premiumOnly") == "true",
	)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidLocation) {
			badRequest(c, "location coordinates are out of range")
			return
		}
		serverError(c, "failed to retrieve nearby shops")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": shops})
}

// GetShop returns one shop with its available products.
func (h *Handler) GetShop(c *gin.Context) {
	shop, products, err := h.catalog.ShopDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrShopNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   gin.H{"message": "shop not found"},
			})
			return
		}
		serverError(c, "failed to retrieve shop")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"shop": shop, "products": products},
	})
}

// createShopRequest is the admin payload for registering a shop.
type createShopRequest struct {
	Name      string  `json:"name" binding:"required"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"min=-180,max=180"`
	Rating    float64 `json:"rating"`
	IsPremium bool    `json:"isPremium"`
	Category  string  `json:"category"`
}

// CreateShop registers a new shop.
func (h *Handler) CreateShop(c *gin.Context) {
	var req createShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	shop := &domain.Shop{
		Name:      req.Name,
		Address:   req.Address,
		Location:  domain.GeoPoint{Latitude: req.Latitude, Longitude: req.Longitude},
		Rating:    req.Rating,
		IsPremium: req.IsPremium,
		Category:  req.Category,
	}
	if err := h.catalog.CreateShop(c.Request.Context(), shop); err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) || errors.Is(err, domain.ErrInvalidLocation) {
			badRequest(c, "invalid shop payload")
			return
		}
		serverError(c, "failed to create shop")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": shop})
}

// ListProducts returns a filtered page of products.
func (h *Handler) ListProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	minPrice, _ := strconv.ParseFloat(c.DefaultQuery("minPrice", "0"), 64)
	maxPrice, _ := strconv.ParseFloat(c.DefaultQuery("maxPrice", "0"), 64)

	products, total, err := h.catalog.ListProducts(c.Request.Context(), domain.ProductFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		serverError(c, "failed to retrieve products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    products,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// createProductRequest is the admin payload for registering a product.
type createProductRequest struct {
	ShopID      string  `json:"shopId" binding:"required"`
	Name        string  `json:"name" binding:"required"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	Category    string  `json:"category"`
	Brand       string  `json:"brand"`
	IsAvailable *bool   `json:"isAvailable"`
}

// CreateProduct registers a new product under a shop. The normalized
// name and keywords are computed by the catalog service at creation.
func (h *Handler) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	product := &domain.Product{
		ShopID:      req.ShopID,
		Name:        req.Name,
		Price:       req.Price,
		Category:    req.Category,
		Brand:       req.Brand,
		IsAvailable: available,
	}
	if err := h.catalog.CreateProduct(c.Request.Context(), product); err != nil {
		switch {
		case errors.Is(err, domain.ErrShopNotFound):
			badRequest(c, "shop does not exist")
		case errors.Is(err, domain.ErrInvalidRequest):
			badRequest(c, "invalid product payload")
		default:
			serverError(c, "failed to create product")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": product})
}

// AnalyticsStats returns aggregate scan statistics.
func (h *Handler) AnalyticsStats(c *gin.Context) {
	stats, err := h.analytics.Stats(c.Request.Context())
	if err != nil {
		serverError(c, "failed to retrieve analytics")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   gin.H{"message": message},
	})
}

func serverError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   gin.H{"message": message},
	})
}
