package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/pricelens/backend/internal/domain"
)

// CatalogRepo implements domain.CatalogRepository over PostgreSQL.
// Product keywords are stored as a text[] column so the keyword-overlap
// match strategy maps onto the array && operator.
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo creates a catalog repository backed by the given database.
func NewCatalogRepo(db *sql.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

const candidateColumns = `
	p.id, p.shop_id, p.name, p.normalized_name, p.price, p.category, p.brand, p.keywords, p.is_available,
	s.id, s.name, s.address, s.latitude, s.longitude, s.rating, s.is_premium, s.category`

// FindCandidates runs the coarse candidate query for one scanned item:
// three OR-ed match strategies, hard-filtered to available, strictly
// cheaper products whose shop sits inside the bounding box.
func (r *CatalogRepo) FindCandidates(ctx context.Context, q domain.CandidateQuery) ([]domain.Candidate, error) {
	keywords := q.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	query := `
		SELECT` + candidateColumns + `
		FROM products p
		JOIN shops s ON s.id = p.shop_id
		WHERE p.is_available
		  AND p.price < $1
		  AND s.latitude BETWEEN $2 AND $3
		  AND s.longitude BETWEEN $4 AND $5
		  AND (
		        p.normalized_name ILIKE '%' || $6 || '%'
		     OR p.keywords && $7
		     OR ($8 <> '' AND LOWER(p.category) = LOWER($8))
		  )
		  AND (NOT $9 OR s.is_premium)
		ORDER BY p.price ASC, s.is_premium DESC
		LIMIT $10`

	rows, err := r.db.QueryContext(ctx, query,
		q.MaxPrice,
		q.Box.MinLat, q.Box.MaxLat,
		q.Box.MinLng, q.Box.MaxLng,
		q.NormalizedName,
		pq.Array(keywords),
		q.Category,
		q.PremiumOnly,
		q.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// FindShopsInBox returns shops inside the bounding box, premium and
// highly rated first. The exact radius filter happens in the usecase.
func (r *CatalogRepo) FindShopsInBox(
	ctx context.Context,
	box domain.BoundingBox,
	category string,
	premiumOnly bool,
	limit int,
) ([]domain.Shop, error) {
	query := `
		SELECT id, name, address, latitude, longitude, rating, is_premium, category
		FROM shops
		WHERE latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
		  AND ($5 = '' OR LOWER(category) = LOWER($5))
		  AND (NOT $6 OR is_premium)
		ORDER BY is_premium DESC, rating DESC
		LIMIT $7`

	rows, err := r.db.QueryContext(ctx, query,
		box.MinLat, box.MaxLat, box.MinLng, box.MaxLng,
		category, premiumOnly, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query shops in box: %w", err)
	}
	defer rows.Close()

	var shops []domain.Shop
	for rows.Next() {
		shop, err := scanShop(rows)
		if err != nil {
			return nil, err
		}
		shops = append(shops, shop)
	}
	return shops, rows.Err()
}

// GetShopByID returns one shop or domain.ErrShopNotFound.
func (r *CatalogRepo) GetShopByID(ctx context.Context, id string) (*domain.Shop, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, address, latitude, longitude, rating, is_premium, category
		FROM shops
		WHERE id = $1`, id)

	var shop domain.Shop
	err := row.Scan(
		&shop.ID, &shop.Name, &shop.Address,
		&shop.Location.Latitude, &shop.Location.Longitude,
		&shop.Rating, &shop.IsPremium, &shop.Category,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrShopNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shop %s: %w", id, err)
	}
	return &shop, nil
}

// ListShopProducts returns a shop's available products, cheapest first.
func (r *CatalogRepo) ListShopProducts(ctx context.Context, shopID string, limit int) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, shop_id, name, normalized_name, price, category, brand, keywords, is_available
		FROM products
		WHERE shop_id = $1 AND is_available
		ORDER BY price ASC
		LIMIT $2`, shopID, limit)
	if err != nil {
		return nil, fmt.Errorf("query shop products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID, &p.ShopID, &p.Name, &p.NormalizedName, &p.Price,
			&p.Category, &p.Brand, pq.Array(&p.Keywords), &p.IsAvailable,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// CreateShop inserts a new shop.
func (r *CatalogRepo) CreateShop(ctx context.Context, shop *domain.Shop) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shops (id, name, address, latitude, longitude, rating, is_premium, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		shop.ID, shop.Name, shop.Address,
		shop.Location.Latitude, shop.Location.Longitude,
		shop.Rating, shop.IsPremium, shop.Category,
	)
	if err != nil {
		return fmt.Errorf("insert shop: %w", err)
	}
	return nil
}

// ListProducts returns a filtered page of available products joined
// with their shops, plus the total match count.
func (r *CatalogRepo) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Candidate, int, error) {
	var conditions []string
	var args []interface{}

	conditions = append(conditions, "p.is_available")

	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("LOWER(p.category) = LOWER($%d)", len(args)))
	}
	if filter.Search != "" {
		args = append(args, filter.Search)
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(p.name ILIKE '%%' || $%d || '%%' OR p.normalized_name ILIKE '%%' || $%d || '%%' OR $%d = ANY(p.keywords))",
			n, n, n,
		))
	}
	if filter.MinPrice > 0 {
		args = append(args, filter.MinPrice)
		conditions = append(conditions, fmt.Sprintf("p.price >= $%d", len(args)))
	}
	if filter.MaxPrice > 0 {
		args = append(args, filter.MaxPrice)
		conditions = append(conditions, fmt.Sprintf("p.price <= $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM products p WHERE " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := fmt.Sprintf(`
		SELECT`+candidateColumns+`
		FROM products p
		JOIN shops s ON s.id = p.shop_id
		WHERE %s
		ORDER BY p.price ASC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	candidates, err := scanCandidates(rows)
	if err != nil {
		return nil, 0, err
	}
	return candidates, total, nil
}

// CreateProduct inserts a new product with its precomputed normalized
// name and keywords.
func (r *CatalogRepo) CreateProduct(ctx context.Context, product *domain.Product) error {
	keywords := product.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, shop_id, name, normalized_name, price, category, brand, keywords, is_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		product.ID, product.ShopID, product.Name, product.NormalizedName,
		product.Price, product.Category, product.Brand,
		pq.Array(keywords), product.IsAvailable,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func scanCandidates(rows *sql.Rows) ([]domain.Candidate, error) {
	var candidates []domain.Candidate
	for rows.Next() {
		var c domain.Candidate
		if err := rows.Scan(
			&c.Product.ID, &c.Product.ShopID, &c.Product.Name, &c.Product.NormalizedName,
			&c.Product.Price, &c.Product.Category, &c.Product.Brand,
			pq.Array(&c.Product.Keywords), &c.Product.IsAvailable,
			&c.Shop.ID, &c.Shop.Name, &c.Shop.Address,
			&c.Shop.Location.Latitude, &c.Shop.Location.Longitude,
			&c.Shop.Rating, &c.Shop.IsPremium, &c.Shop.Category,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func scanShop(rows *sql.Rows) (domain.Shop, error) {
	var shop domain.Shop
	err := rows.Scan(
		&shop.ID, &shop.Name, &shop.Address,
		&shop.Location.Latitude, &shop.Location.Longitude,
		&shop.Rating, &shop.IsPremium, &shop.Category,
	)
	if err != nil {
		return shop, fmt.Errorf("scan shop: %w", err)
	}
	return shop, nil
}
