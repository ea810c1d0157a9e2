package usecase

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/domain"
)

const (
	// snapshotSampleSize bounds how many recent scans feed the category
	// ranking, keeping the stats query cheap on a large history table.
	snapshotSampleSize = 1000

	topCategories = 10
)

// AnalyticsService aggregates scan history into dashboard statistics.
type AnalyticsService struct {
	history domain.ScanHistoryRepository
	log     zerolog.Logger
}

// NewAnalyticsService creates a new analytics service.
func NewAnalyticsService(history domain.ScanHistoryRepository, log zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{history: history, log: log}
}

// Stats returns scan totals plus the most scanned item categories,
// counted over the most recent snapshots.
func (s *AnalyticsService) Stats(ctx context.Context) (*domain.AnalyticsStats, error) {
	totalScans, totalSavings, averageSavings, err := s.history.SavingsTotals(ctx)
	if err != nil {
		return nil, err
	}

	snapshots, err := s.history.RecentSnapshots(ctx, snapshotSampleSize)
	if err != nil {
		return nil, err
	}

	return &domain.AnalyticsStats{
		TotalScans:            totalScans,
		TotalSavings:          totalSavings,
		AverageSavings:        averageSavings,
		MostScannedCategories: topScannedCategories(snapshots, topCategories),
	}, nil
}

// topScannedCategories counts scanned-item categories across snapshots
// and returns the top n, most frequent first. Ties break by category
// name for a deterministic ordering.
func topScannedCategories(snapshots []domain.ScanSnapshot, n int) []domain.CategoryCount {
	counts := make(map[string]int)
	for _, snapshot := range snapshots {
		for _, item := range snapshot.ScannedItems {
			if item.Category != "" {
				counts[item.Category]++
			}
		}
	}

	ranked := make([]domain.CategoryCount, 0, len(counts))
	for category, count := range counts {
		ranked = append(ranked, domain.CategoryCount{Category: category, Count: count})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Category < ranked[j].Category
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
