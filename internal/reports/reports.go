package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver
	"github.com/user/eoc-response-sim/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	ended_at TEXT NOT NULL,
	disaster TEXT NOT NULL,
	scenario_name TEXT NOT NULL,
	score INTEGER NOT NULL,
	completed_decisions INTEGER NOT NULL,
	pending_decisions INTEGER NOT NULL,
	time_remaining REAL NOT NULL,
	tutorial INTEGER NOT NULL,
	resources_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS reports_ended_at ON reports(ended_at);
`

// Report is the after-action summary of one finished scenario
type Report struct {
	ID                 string             `json:"id"`
	EndedAt            time.Time          `json:"ended_at"`
	Disaster           types.DisasterType `json:"disaster"`
	ScenarioName       string             `json:"scenario_name"`
	Score              int                `json:"score"`
	CompletedDecisions int                `json:"completed_decisions"`
	PendingDecisions   int                `json:"pending_decisions"`
	TimeRemaining      float64            `json:"time_remaining"`
	Tutorial           bool               `json:"tutorial"`
	Resources          types.Resources    `json:"resources"`
}

// Repository stores reports in SQLite
type Repository struct {
	db *sql.DB
}

// Open opens the report database, creating its directory and schema
func Open(driver, dsn string) (*Repository, error) {
	if driver == "" {
		driver = "sqlite3"
	}
	if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open report database: %w", err)
	}
	// a single connection keeps sqlite writes serialized
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate report database: %w", err)
	}
	return &Repository{db: db}, nil
}

// Close closes the underlying database
func (r *Repository) Close() error {
	return r.db.Close()
}

// Save inserts a report
func (r *Repository) Save(ctx context.Context, report Report) error {
	resources, err := json.Marshal(report.Resources)
	if err != nil {
		return fmt.Errorf("marshal resources: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO reports(id,ended_at,disaster,scenario_name,score,completed_decisions,pending_decisions,time_remaining,tutorial,resources_json) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		report.ID,
		report.EndedAt.UTC().Format(time.RFC3339Nano),
		string(report.Disaster),
		report.ScenarioName,
		report.Score,
		report.CompletedDecisions,
		report.PendingDecisions,
		report.TimeRemaining,
		report.Tutorial,
		string(resources),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// List returns the most recent reports first. A non-positive limit returns all.
func (r *Repository) List(ctx context.Context, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id,ended_at,disaster,scenario_name,score,completed_decisions,pending_decisions,time_remaining,tutorial,resources_json FROM reports ORDER BY ended_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := make([]Report, 0)
	for rows.Next() {
		var (
			report    Report
			endedAt   string
			disaster  string
			resources string
		)
		if err := rows.Scan(&report.ID, &endedAt, &disaster, &report.ScenarioName, &report.Score,
			&report.CompletedDecisions, &report.PendingDecisions, &report.TimeRemaining,
			&report.Tutorial, &resources); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		report.Disaster = types.DisasterType(disaster)
		report.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse report time: %w", err)
		}
		if err := json.Unmarshal([]byte(resources), &report.Resources); err != nil {
			return nil, fmt.Errorf("failed to parse report resources: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}
