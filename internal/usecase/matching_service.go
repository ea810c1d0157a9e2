package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/geo"
)

// FailureMode controls what the matching pipeline does with errors.
type FailureMode int

const (
	// FailureSuppress logs errors and degrades to empty results. This is
	// the default: the caller only ever sees "alternatives found",
	// possibly empty, and logs are the diagnostic channel.
	FailureSuppress FailureMode = iota

	// FailurePropagate surfaces errors to the caller.
	FailurePropagate
)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	DefaultRadiusKm   float64
	MinSavingsPercent float64
	MaxCandidates     int
	MaxAlternatives   int
	// ItemConcurrency bounds the number of scanned items processed in
	// parallel. 1 means strictly sequential.
	ItemConcurrency int
	FailureMode     FailureMode
}

// MatchingService finds cheaper in-range alternatives for scanned
// invoice items. It is constructed once at startup and holds no
// mutable state.
type MatchingService struct {
	catalog           domain.CatalogRepository
	log               zerolog.Logger
	defaultRadiusKm   float64
	minSavingsPercent float64
	maxCandidates     int
	maxAlternatives   int
	itemConcurrency   int
	failureMode       FailureMode
}

// NewMatchingService creates a new matching service with the given
// catalog repository and configuration.
func NewMatchingService(catalog domain.CatalogRepository, log zerolog.Logger, config MatchConfig) *MatchingService {
	radius := config.DefaultRadiusKm
	if radius <= 0 {
		radius = 10
	}

	minSavings := config.MinSavingsPercent
	if minSavings <= 0 {
		minSavings = 5.0
	}

	maxCandidates := config.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = 20
	}

	maxAlternatives := config.MaxAlternatives
	if maxAlternatives <= 0 {
		maxAlternatives = 50
	}

	concurrency := config.ItemConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &MatchingService{
		catalog:           catalog,
		log:               log,
		defaultRadiusKm:   radius,
		minSavingsPercent: minSavings,
		maxCandidates:     maxCandidates,
		maxAlternatives:   maxAlternatives,
		itemConcurrency:   concurrency,
		failureMode:       config.FailureMode,
	}
}

// FindAlternatives runs the per-item retrieve-and-rank pipeline over
// all scanned items, then sorts the aggregated alternatives by savings
// percentage descending and truncates to the configured cap.
//
// A radiusKm of zero or less falls back to the default radius. In
// suppress mode any pipeline failure yields an empty slice and a log
// entry; in propagate mode it is returned wrapped in ErrMatchingFailed.
func (s *MatchingService) FindAlternatives(
	ctx context.Context,
	items []domain.ScannedItem,
	userLocation domain.GeoPoint,
	radiusKm float64,
	premiumOnly bool,
) ([]domain.Alternative, error) {
	if radiusKm <= 0 {
		radiusKm = s.defaultRadiusKm
	}

	alternatives, err := s.findAll(ctx, items, userLocation, radiusKm, premiumOnly)
	if err != nil {
		if s.failureMode == FailurePropagate {
			return nil, fmt.Errorf("%w: %v", domain.ErrMatchingFailed, err)
		}
		s.log.Error().Err(err).Int("items", len(items)).Msg("alternative matching failed")
		return []domain.Alternative{}, nil
	}

	// Global ranking across all items, highest savings first. Stable so
	// ties keep their aggregation order regardless of concurrency.
	sort.SliceStable(alternatives, func(i, j int) bool {
		return alternatives[i].SavingsPercentage > alternatives[j].SavingsPercentage
	})

	if len(alternatives) > s.maxAlternatives {
		alternatives = alternatives[:s.maxAlternatives]
	}

	s.log.Info().
		Int("items", len(items)).
		Int("alternatives", len(alternatives)).
		Float64("radiusKm", radiusKm).
		Bool("premiumOnly", premiumOnly).
		Msg("found alternatives")

	return alternatives, nil
}

// findAll processes items either sequentially or with bounded fan-out.
// Per-item results are flattened in input order, so the concurrency
// setting never changes the final ordering semantics.
func (s *MatchingService) findAll(
	ctx context.Context,
	items []domain.ScannedItem,
	userLocation domain.GeoPoint,
	radiusKm float64,
	premiumOnly bool,
) ([]domain.Alternative, error) {
	if !geo.ValidPoint(userLocation) {
		return nil, domain.ErrInvalidLocation
	}

	perItem := make([][]domain.Alternative, len(items))

	if s.itemConcurrency <= 1 {
		for i, item := range items {
			result, err := s.findAlternativesForItem(ctx, item, userLocation, radiusKm, premiumOnly)
			if err != nil {
				return nil, err
			}
			perItem[i] = result
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.itemConcurrency)
		for i, item := range items {
			i, item := i, item
			g.Go(func() error {
				result, err := s.findAlternativesForItem(gctx, item, userLocation, radiusKm, premiumOnly)
				if err != nil {
					return err
				}
				perItem[i] = result
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	var combined []domain.Alternative
	for _, result := range perItem {
		combined = append(combined, result...)
	}
	return combined, nil
}

// findAlternativesForItem retrieves and ranks candidates for one item.
// Retrieval failures are isolated: in suppress mode the item simply
// contributes zero alternatives and the scan continues.
func (s *MatchingService) findAlternativesForItem(
	ctx context.Context,
	item domain.ScannedItem,
	userLocation domain.GeoPoint,
	radiusKm float64,
	premiumOnly bool,
) ([]domain.Alternative, error) {
	if item.Price <= 0 {
		s.log.Debug().Str("item", item.Name).Msg("skipping item without a positive price")
		return nil, nil
	}

	normalized := item.NormalizedName
	if normalized == "" {
		normalized = Normalize(item.Name)
	}

	query := domain.CandidateQuery{
		NormalizedName: normalized,
		Keywords:       ExtractKeywords(item.Name),
		Category:       item.Category,
		MaxPrice:       item.Price,
		Box:            geo.BoundingBox(userLocation, radiusKm),
		PremiumOnly:    premiumOnly,
		Limit:          s.maxCandidates,
	}

	candidates, err := s.catalog.FindCandidates(ctx, query)
	if err != nil {
		if s.failureMode == FailurePropagate {
			return nil, fmt.Errorf("find candidates for %q: %w", item.Name, err)
		}
		s.log.Error().Err(err).Str("item", item.Name).Msg("candidate retrieval failed")
		return nil, nil
	}

	return s.rank(item, candidates, userLocation, radiusKm), nil
}

// rank converts raw candidates into validated alternatives. The exact
// Haversine distance computed here is the authoritative radius check;
// the bounding box used during retrieval is only a superset pre-filter.
// Candidate order is preserved.
func (s *MatchingService) rank(
	item domain.ScannedItem,
	candidates []domain.Candidate,
	userLocation domain.GeoPoint,
	radiusKm float64,
) []domain.Alternative {
	var alternatives []domain.Alternative

	for _, c := range candidates {
		savings := item.Price - c.Product.Price
		savingsPercentage := savings / item.Price * 100
		distance := geo.DistanceKm(userLocation, c.Shop.Location)

		if distance > radiusKm || savingsPercentage < s.minSavingsPercent {
			continue
		}

		alternatives = append(alternatives, domain.Alternative{
			OriginalItem: item.Name,
			Shop: domain.AlternativeShop{
				ID:        c.Shop.ID,
				Name:      c.Shop.Name,
				Address:   c.Shop.Address,
				Latitude:  c.Shop.Location.Latitude,
				Longitude: c.Shop.Location.Longitude,
				Rating:    c.Shop.Rating,
				IsPremium: c.Shop.IsPremium,
				Category:  c.Shop.Category,
			},
			Product: domain.AlternativeProduct{
				ID:       c.Product.ID,
				Name:     c.Product.Name,
				Price:    c.Product.Price,
				Category: c.Product.Category,
				Brand:    c.Product.Brand,
			},
			Savings:           savings,
			SavingsPercentage: savingsPercentage,
			DistanceKm:        distance,
		})
	}

	return alternatives
}
