package repository

import (
	"context"
	"fmt"

	"stock-scout/models"
	"stock-scout/observability"
)

// RecordSnapshotBuild persists one snapshot build audit row
func (r *Repository) RecordSnapshotBuild(ctx context.Context, build *models.SnapshotBuild) error {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()

	_, err := r.db.Exec(ctx, `
		INSERT INTO snapshot_builds (id, snapshot_id, status, symbols_tracked, symbols_loaded, error_message, duration_ms, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, build.ID, build.SnapshotID, build.Status, build.SymbolsTracked, build.SymbolsLoaded, build.ErrorMessage, build.DurationMs, build.StartedAt)

	timer.ObserveDB("insert", "snapshot_builds")
	if err != nil {
		metrics.RecordDBError("insert", "snapshot_builds")
		return fmt.Errorf("failed to record snapshot build: %w", err)
	}

	return nil
}

// GetRecentSnapshotBuilds returns the latest build audit rows, newest first
func (r *Repository) GetRecentSnapshotBuilds(ctx context.Context, limit int) ([]models.SnapshotBuild, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, snapshot_id, status, symbols_tracked, symbols_loaded, error_message, duration_ms, started_at
		FROM snapshot_builds
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)

	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot builds: %w", err)
	}
	defer rows.Close()

	var builds []models.SnapshotBuild
	for rows.Next() {
		var b models.SnapshotBuild
		if err := rows.Scan(&b.ID, &b.SnapshotID, &b.Status, &b.SymbolsTracked, &b.SymbolsLoaded, &b.ErrorMessage, &b.DurationMs, &b.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot build: %w", err)
		}
		builds = append(builds, b)
	}

	return builds, rows.Err()
}
