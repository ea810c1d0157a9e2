package usecase

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/geo"
)

const (
	maxNearbyShops      = 50
	maxShopProducts     = 20
	defaultProductLimit = 20
	maxProductLimit     = 100
)

// CatalogService serves the shop/product catalog surface: nearby shop
// search, lookups, listings, and admin creation.
type CatalogService struct {
	catalog         domain.CatalogRepository
	log             zerolog.Logger
	defaultRadiusKm float64
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(catalog domain.CatalogRepository, log zerolog.Logger, defaultRadiusKm float64) *CatalogService {
	if defaultRadiusKm <= 0 {
		defaultRadiusKm = 10
	}
	return &CatalogService{catalog: catalog, log: log, defaultRadiusKm: defaultRadiusKm}
}

// NearbyShops returns shops within radiusKm of the location, nearest
// first, with their exact distance annotated. The catalog query uses a
// bounding box; the exact distance filter happens here.
func (s *CatalogService) NearbyShops(
	ctx context.Context,
	location domain.GeoPoint,
	radiusKm float64,
	category string,
	premiumOnly bool,
) ([]domain.ShopWithDistance, error) {
	if !geo.ValidPoint(location) {
		return nil, domain.ErrInvalidLocation
	}
	if radiusKm <= 0 {
		radiusKm = s.defaultRadiusKm
	}

	box := geo.BoundingBox(location, radiusKm)
	shops, err := s.catalog.FindShopsInBox(ctx, box, category, premiumOnly, maxNearbyShops)
	if err != nil {
		return nil, err
	}

	result := make([]domain.ShopWithDistance, 0, len(shops))
	for _, shop := range shops {
		distance := geo.DistanceKm(location, shop.Location)
		if distance > radiusKm {
			continue
		}
		result = append(result, domain.ShopWithDistance{Shop: shop, DistanceKm: distance})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].DistanceKm < result[j].DistanceKm
	})

	return result, nil
}

// ShopDetails returns a shop together with its available products,
// cheapest first.
func (s *CatalogService) ShopDetails(ctx context.Context, id string) (*domain.Shop, []domain.Product, error) {
	shop, err := s.catalog.GetShopByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	products, err := s.catalog.ListShopProducts(ctx, id, maxShopProducts)
	if err != nil {
		return nil, nil, err
	}

	return shop, products, nil
}

// ListProducts returns a filtered page of available products with their
// shops, plus the total match count.
func (s *CatalogService) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Candidate, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultProductLimit
	}
	if filter.Limit > maxProductLimit {
		filter.Limit = maxProductLimit
	}
	if filter.Search != "" {
		filter.Search = Normalize(filter.Search)
	}
	return s.catalog.ListProducts(ctx, filter)
}

// CreateShop validates and stores a new shop.
func (s *CatalogService) CreateShop(ctx context.Context, shop *domain.Shop) error {
	if shop == nil || shop.Name == "" {
		return domain.ErrInvalidRequest
	}
	if !geo.ValidPoint(shop.Location) {
		return domain.ErrInvalidLocation
	}

	if shop.ID == "" {
		shop.ID = uuid.NewString()
	}

	if err := s.catalog.CreateShop(ctx, shop); err != nil {
		return err
	}

	s.log.Info().Str("shopId", shop.ID).Str("name", shop.Name).Msg("shop created")
	return nil
}

// CreateProduct validates and stores a new product. The normalized name
// and keywords are computed here, once, at creation time; reads never
// re-normalize.
func (s *CatalogService) CreateProduct(ctx context.Context, product *domain.Product) error {
	if product == nil || product.Name == "" || product.ShopID == "" || product.Price <= 0 {
		return domain.ErrInvalidRequest
	}

	if _, err := s.catalog.GetShopByID(ctx, product.ShopID); err != nil {
		return err
	}

	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	product.NormalizedName = Normalize(product.Name)
	product.Keywords = ExtractKeywords(product.Name)

	if err := s.catalog.CreateProduct(ctx, product); err != nil {
		return err
	}

	s.log.Info().Str("productId", product.ID).Str("shopId", product.ShopID).Msg("product created")
	return nil
}
