package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pricelens/backend/internal/domain"
)

// ScanHistoryRepo implements domain.ScanHistoryRepository over
// PostgreSQL. The full scan snapshot is stored as a jsonb column and
// always unmarshaled into the typed domain.ScanSnapshot shape.
type ScanHistoryRepo struct {
	db *sql.DB
}

// NewScanHistoryRepo creates a scan history repository.
func NewScanHistoryRepo(db *sql.DB) *ScanHistoryRepo {
	return &ScanHistoryRepo{db: db}
}

// Save persists one scan record.
func (r *ScanHistoryRepo) Save(ctx context.Context, record *domain.ScanRecord) error {
	snapshot, err := json.Marshal(record.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal scan snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO scan_history (
			id, image_path, scan_result, items_found, alternatives_found,
			potential_savings, confidence_score, user_latitude, user_longitude, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		record.ID, record.ImagePath, snapshot,
		record.ItemsFound, record.AlternativesFound,
		record.PotentialSavings, record.ConfidenceScore,
		record.UserLocation.Latitude, record.UserLocation.Longitude,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert scan history: %w", err)
	}
	return nil
}

// List returns a page of scan records, newest first, and the total count.
func (r *ScanHistoryRepo) List(ctx context.Context, page, limit int) ([]domain.ScanRecord, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scan_history`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count scan history: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, image_path, scan_result, items_found, alternatives_found,
		       potential_savings, confidence_score, user_latitude, user_longitude, created_at
		FROM scan_history
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("query scan history: %w", err)
	}
	defer rows.Close()

	var records []domain.ScanRecord
	for rows.Next() {
		var record domain.ScanRecord
		var snapshot []byte
		if err := rows.Scan(
			&record.ID, &record.ImagePath, &snapshot,
			&record.ItemsFound, &record.AlternativesFound,
			&record.PotentialSavings, &record.ConfidenceScore,
			&record.UserLocation.Latitude, &record.UserLocation.Longitude,
			&record.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan history row: %w", err)
		}
		if err := json.Unmarshal(snapshot, &record.Snapshot); err != nil {
			return nil, 0, fmt.Errorf("unmarshal scan snapshot %s: %w", record.ID, err)
		}
		records = append(records, record)
	}
	return records, total, rows.Err()
}

// SavingsTotals returns the scan count plus total and average potential
// savings across the whole history.
func (r *ScanHistoryRepo) SavingsTotals(ctx context.Context) (int, float64, float64, error) {
	var totalScans int
	var totalSavings, averageSavings float64

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(potential_savings), 0),
		       COALESCE(AVG(potential_savings), 0)
		FROM scan_history`,
	).Scan(&totalScans, &totalSavings, &averageSavings)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("aggregate scan history: %w", err)
	}

	return totalScans, totalSavings, averageSavings, nil
}

// RecentSnapshots returns the typed snapshots of the most recent scans.
func (r *ScanHistoryRepo) RecentSnapshots(ctx context.Context, limit int) ([]domain.ScanSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT scan_result
		FROM scan_history
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []domain.ScanSnapshot
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		var snapshot domain.ScanSnapshot
		if err := json.Unmarshal(raw, &snapshot); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}
