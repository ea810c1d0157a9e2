package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/geo"
)

// ScanService drives the full invoice pipeline: extraction, alternative
// matching, summary calculation, and scan-history persistence.
type ScanService struct {
	extraction domain.ExtractionClient
	matching   *MatchingService
	history    domain.ScanHistoryRepository
	log        zerolog.Logger
}

// NewScanService creates a new scan service with its dependencies.
func NewScanService(
	extraction domain.ExtractionClient,
	matching *MatchingService,
	history domain.ScanHistoryRepository,
	log zerolog.Logger,
) *ScanService {
	return &ScanService{
		extraction: extraction,
		matching:   matching,
		history:    history,
		log:        log,
	}
}

// ProcessInvoice extracts line items from an invoice image and finds
// cheaper in-range alternatives for them.
//
// Extraction failure degrades to zero scanned items rather than failing
// the scan. History persistence failure is logged and the result is
// still returned; the scan id is generated up front so the response
// does not depend on the write.
func (s *ScanService) ProcessInvoice(ctx context.Context, request domain.ScanRequest) (*domain.ScanResult, error) {
	if !geo.ValidPoint(request.UserLocation) {
		return nil, domain.ErrInvalidLocation
	}

	startTime := time.Now()

	s.log.Info().Str("imagePath", request.ImagePath).Msg("processing invoice")

	items, err := s.extraction.ExtractItems(ctx, request.ImagePath)
	if err != nil {
		s.log.Warn().Err(err).Str("imagePath", request.ImagePath).Msg("extraction failed, continuing with zero items")
		items = nil
	}

	alternatives, err := s.matching.FindAlternatives(
		ctx,
		items,
		request.UserLocation,
		request.RadiusKm,
		request.PremiumOnly,
	)
	if err != nil {
		return nil, err
	}

	summary := buildSummary(items, alternatives, time.Since(startTime))

	result := &domain.ScanResult{
		ScanID:       uuid.NewString(),
		ScannedItems: items,
		Alternatives: alternatives,
		Summary:      summary,
	}

	record := &domain.ScanRecord{
		ID:        result.ScanID,
		ImagePath: request.ImagePath,
		Snapshot: domain.ScanSnapshot{
			ScannedItems: items,
			Alternatives: alternatives,
			Summary:      summary,
		},
		ItemsFound:        summary.ItemsFound,
		AlternativesFound: summary.AlternativesFound,
		PotentialSavings:  summary.PotentialSavings,
		ConfidenceScore:   summary.ConfidenceScore,
		UserLocation:      request.UserLocation,
		CreatedAt:         time.Now(),
	}
	if err := s.history.Save(ctx, record); err != nil {
		s.log.Error().Err(err).Str("scanId", result.ScanID).Msg("failed to save scan history")
	}

	s.log.Info().
		Str("scanId", result.ScanID).
		Int("itemsFound", summary.ItemsFound).
		Int("alternativesFound", summary.AlternativesFound).
		Int64("processingTimeMs", summary.ProcessingTimeMs).
		Msg("invoice processing completed")

	return result, nil
}

// GetScanHistory returns a page of past scans, newest first, along with
// the total scan count.
func (s *ScanService) GetScanHistory(ctx context.Context, page, limit int) ([]domain.ScanRecord, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.history.List(ctx, page, limit)
}

// buildSummary aggregates the scan outcome. The confidence score is the
// mean extraction confidence across items, 0 when there are none.
func buildSummary(items []domain.ScannedItem, alternatives []domain.Alternative, elapsed time.Duration) domain.ScanSummary {
	var totalSavings float64
	for _, alt := range alternatives {
		totalSavings += alt.Savings
	}

	var avgConfidence float64
	if len(items) > 0 {
		var sum float64
		for _, item := range items {
			sum += item.Confidence
		}
		avgConfidence = sum / float64(len(items))
	}

	return domain.ScanSummary{
		ItemsFound:        len(items),
		AlternativesFound: len(alternatives),
		PotentialSavings:  totalSavings,
		ConfidenceScore:   avgConfidence,
		ProcessingTimeMs:  elapsed.Milliseconds(),
	}
}
