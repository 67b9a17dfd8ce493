package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/palletops/warehouse-monitor/internal/dashboard"
)

// CycleHistory persists one audit row per refresh cycle so operators can
// see when data was fetched, what triggered it, and how each cycle ended.
type CycleHistory struct {
	db *sql.DB
}

// NewCycleHistory creates the history store and ensures its table exists.
func NewCycleHistory(db *sql.DB) *CycleHistory {
	h := &CycleHistory{db: db}
	h.ensureTables()
	return h
}

// ensureTables creates the audit table if missing. Idempotent.
func (h *CycleHistory) ensureTables() {
	if h.db == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS anomaly_refresh_cycles (
			id             VARCHAR(100) PRIMARY KEY,
			generation     BIGINT NOT NULL,
			triggered_by   VARCHAR(50) NOT NULL DEFAULT 'refresh',
			started_at     TIMESTAMP WITH TIME ZONE NOT NULL,
			completed_at   TIMESTAMP WITH TIME ZONE,
			status         VARCHAR(20) NOT NULL,
			report_id      BIGINT,
			anomaly_count  INT DEFAULT 0,
			critical_count INT DEFAULT 0,
			error_message  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_cycles_started ON anomaly_refresh_cycles(started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_cycles_status ON anomaly_refresh_cycles(status)`,
	}

	for _, stmt := range statements {
		if _, err := h.db.ExecContext(ctx, stmt); err != nil {
			log.Printf("[CycleHistory] ensureTables warning: %v", err)
		}
	}
}

// RecordCycle inserts one audit row. Implements dashboard.CycleRecorder.
func (h *CycleHistory) RecordCycle(ctx context.Context, rec dashboard.CycleRecord) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO anomaly_refresh_cycles
		 (id, generation, triggered_by, started_at, completed_at, status, report_id, anomaly_count, critical_count, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.Generation, rec.TriggeredBy, rec.StartedAt, rec.CompletedAt,
		rec.Status, rec.ReportID, rec.AnomalyCount, rec.Critical, rec.Err,
	)
	if err != nil {
		return fmt.Errorf("insert cycle record: %w", err)
	}
	return nil
}

// RecentCycles returns the newest audit rows, most recent first.
func (h *CycleHistory) RecentCycles(ctx context.Context, limit int) ([]dashboard.CycleRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := h.db.QueryContext(ctx,
		`SELECT id, generation, triggered_by, started_at, completed_at, status,
		        COALESCE(report_id, 0), anomaly_count, critical_count, COALESCE(error_message, '')
		 FROM anomaly_refresh_cycles
		 ORDER BY started_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	var records []dashboard.CycleRecord
	for rows.Next() {
		var rec dashboard.CycleRecord
		if err := rows.Scan(&rec.ID, &rec.Generation, &rec.TriggeredBy, &rec.StartedAt,
			&rec.CompletedAt, &rec.Status, &rec.ReportID, &rec.AnomalyCount,
			&rec.Critical, &rec.Err); err != nil {
			return nil, fmt.Errorf("scan cycle row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
