// Package storage provides SQLite-based persistence for deployment
// history. Uses the pure-Go modernc.org/sqlite driver to avoid CGO
// dependencies.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/cordon/internal/dispatch"
)

// Store manages the SQLite database connection for deployment history.
type Store struct {
	db *sql.DB
}

// DeploymentEntry is a single deployment history row.
type DeploymentEntry struct {
	ID           int64
	Variant      string
	Level        int
	Flags        string
	RoadX        float64
	RoadY        float64
	Heading      float64
	LanesBlocked int
	Outcome      string // "hit", "bypassed", "error"
	CopsReleased int
	CopsKilled   int
	DurationSecs float64
	Strips       []StripEntry
	CreatedAt    time.Time
}

// StripEntry is a spike strip summary attached to a deployment.
type StripEntry struct {
	ID           int64
	DeploymentID int64
	Location     string
	FinalState   string
	Deployed     bool
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	// Create parent directories
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS deployments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			variant TEXT NOT NULL,
			level INTEGER NOT NULL,
			flags TEXT NOT NULL DEFAULT 'none',
			road_x REAL NOT NULL DEFAULT 0,
			road_y REAL NOT NULL DEFAULT 0,
			heading REAL NOT NULL DEFAULT 0,
			lanes_blocked INTEGER NOT NULL DEFAULT 0,
			outcome TEXT NOT NULL,
			cops_released INTEGER NOT NULL DEFAULT 0,
			cops_killed INTEGER NOT NULL DEFAULT 0,
			duration_secs REAL NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_deployments_variant ON deployments(variant);
		CREATE INDEX IF NOT EXISTS idx_deployments_outcome ON deployments(outcome);

		CREATE TABLE IF NOT EXISTS strip_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			deployment_id INTEGER NOT NULL REFERENCES deployments(id),
			location TEXT NOT NULL,
			final_state TEXT NOT NULL,
			deployed INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_strip_events_deployment ON strip_events(deployment_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveEntry records a finished deployment and its strip events in one
// transaction. Returns the ID of the inserted deployment.
func (s *Store) SaveEntry(entry DeploymentEntry) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO deployments
		 (variant, level, flags, road_x, road_y, heading, lanes_blocked, outcome, cops_released, cops_killed, duration_secs)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Variant,
		entry.Level,
		entry.Flags,
		entry.RoadX,
		entry.RoadY,
		entry.Heading,
		entry.LanesBlocked,
		entry.Outcome,
		entry.CopsReleased,
		entry.CopsKilled,
		entry.DurationSecs,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save deployment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	for _, strip := range entry.Strips {
		if _, err := tx.Exec(
			`INSERT INTO strip_events (deployment_id, location, final_state, deployed)
			 VALUES (?, ?, ?, ?)`,
			id, strip.Location, strip.FinalState, strip.Deployed,
		); err != nil {
			return 0, fmt.Errorf("storage: cannot save strip event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("storage: cannot commit deployment: %w", err)
	}

	return id, nil
}

// RecentDeployments retrieves the most recent deployments, newest
// first, with their strip events attached.
func (s *Store) RecentDeployments(limit int) ([]DeploymentEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, variant, level, flags, road_x, road_y, heading, lanes_blocked,
		        outcome, cops_released, cops_killed, duration_secs, created_at
		 FROM deployments
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query deployments: %w", err)
	}
	defer rows.Close()

	var entries []DeploymentEntry
	for rows.Next() {
		var e DeploymentEntry
		var createdAt any
		if err := rows.Scan(
			&e.ID,
			&e.Variant,
			&e.Level,
			&e.Flags,
			&e.RoadX,
			&e.RoadY,
			&e.Heading,
			&e.LanesBlocked,
			&e.Outcome,
			&e.CopsReleased,
			&e.CopsKilled,
			&e.DurationSecs,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}

		// Parse the datetime - handle both time.Time and string
		switch v := createdAt.(type) {
		case time.Time:
			e.CreatedAt = v
		case string:
			if parsed, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
				e.CreatedAt = parsed
			}
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	for i := range entries {
		strips, err := s.stripsFor(entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].Strips = strips
	}

	return entries, nil
}

// DeploymentByID retrieves a single deployment with its strip events.
// Returns nil when no deployment has that ID.
func (s *Store) DeploymentByID(id int64) (*DeploymentEntry, error) {
	var e DeploymentEntry
	var createdAt any

	err := s.db.QueryRow(
		`SELECT id, variant, level, flags, road_x, road_y, heading, lanes_blocked,
		        outcome, cops_released, cops_killed, duration_secs, created_at
		 FROM deployments
		 WHERE id = ?`,
		id,
	).Scan(
		&e.ID,
		&e.Variant,
		&e.Level,
		&e.Flags,
		&e.RoadX,
		&e.RoadY,
		&e.Heading,
		&e.LanesBlocked,
		&e.Outcome,
		&e.CopsReleased,
		&e.CopsKilled,
		&e.DurationSecs,
		&createdAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query deployment: %w", err)
	}

	// Parse the datetime
	switch v := createdAt.(type) {
	case time.Time:
		e.CreatedAt = v
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
			e.CreatedAt = parsed
		}
	}

	strips, err := s.stripsFor(e.ID)
	if err != nil {
		return nil, err
	}
	e.Strips = strips

	return &e, nil
}

// stripsFor loads the strip events of one deployment.
func (s *Store) stripsFor(deploymentID int64) ([]StripEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, deployment_id, location, final_state, deployed
		 FROM strip_events
		 WHERE deployment_id = ?
		 ORDER BY id`,
		deploymentID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query strip events: %w", err)
	}
	defer rows.Close()

	var strips []StripEntry
	for rows.Next() {
		var strip StripEntry
		if err := rows.Scan(
			&strip.ID,
			&strip.DeploymentID,
			&strip.Location,
			&strip.FinalState,
			&strip.Deployed,
		); err != nil {
			return nil, fmt.Errorf("storage: cannot scan strip row: %w", err)
		}
		strips = append(strips, strip)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return strips, nil
}

// ClearHistory deletes all recorded deployments and strip events.
func (s *Store) ClearHistory() error {
	if _, err := s.db.Exec("DELETE FROM strip_events"); err != nil {
		return fmt.Errorf("storage: cannot clear strip events: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM deployments"); err != nil {
		return fmt.Errorf("storage: cannot clear deployments: %w", err)
	}
	return nil
}

// SaveDeployment implements dispatch.Saver. This adapter lets the
// dispatcher persist records without a direct storage dependency.
func (s *Store) SaveDeployment(rec dispatch.Record) error {
	entry := DeploymentEntry{
		Variant:      rec.Variant,
		Level:        rec.Level,
		Flags:        rec.Flags,
		RoadX:        rec.RoadPosition.X,
		RoadY:        rec.RoadPosition.Y,
		Heading:      rec.Heading,
		LanesBlocked: rec.LanesBlocked,
		Outcome:      rec.Outcome,
		CopsReleased: rec.CopsReleased,
		CopsKilled:   rec.CopsKilled,
		DurationSecs: rec.Duration.Seconds(),
	}
	for _, strip := range rec.Strips {
		entry.Strips = append(entry.Strips, StripEntry{
			Location:   strip.Location,
			FinalState: strip.State,
			Deployed:   strip.Deployed,
		})
	}
	_, err := s.SaveEntry(entry)
	return err
}

// Ensure Store implements dispatch.Saver
var _ dispatch.Saver = (*Store)(nil)

// DeploymentStats contains aggregated history statistics.
type DeploymentStats struct {
	Deployments  int
	Hits         int
	Bypasses     int
	Errors       int
	CopsReleased int64
	CopsKilled   int64
	AvgDuration  float64
	LastDeployed time.Time
}

// GetDeploymentStats retrieves aggregated statistics over all recorded
// deployments.
func (s *Store) GetDeploymentStats() (*DeploymentStats, error) {
	stats := &DeploymentStats{}

	err := s.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(outcome = ?), 0),
		        COALESCE(SUM(outcome = ?), 0),
		        COALESCE(SUM(outcome = ?), 0),
		        COALESCE(SUM(cops_released), 0),
		        COALESCE(SUM(cops_killed), 0),
		        COALESCE(AVG(duration_secs), 0)
		 FROM deployments`,
		dispatch.OutcomeHit, dispatch.OutcomeBypassed, dispatch.OutcomeError,
	).Scan(
		&stats.Deployments,
		&stats.Hits,
		&stats.Bypasses,
		&stats.Errors,
		&stats.CopsReleased,
		&stats.CopsKilled,
		&stats.AvgDuration,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get deployment stats: %w", err)
	}

	// Get last deployed
	var lastDeployed any
	err = s.db.QueryRow(
		`SELECT created_at FROM deployments ORDER BY created_at DESC, id DESC LIMIT 1`,
	).Scan(&lastDeployed)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("storage: cannot get last deployment: %w", err)
	}
	if err == nil {
		switch v := lastDeployed.(type) {
		case time.Time:
			stats.LastDeployed = v
		case string:
			if parsed, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
				stats.LastDeployed = parsed
			}
		}
	}

	return stats, nil
}

// VariantStats contains per-variant aggregates.
type VariantStats struct {
	Variant      string
	Deployments  int
	Hits         int
	Bypasses     int
	CopsKilled   int64
	LastDeployed time.Time
}

// GetVariantStats retrieves statistics grouped by roadblock variant.
func (s *Store) GetVariantStats() (map[string]*VariantStats, error) {
	rows, err := s.db.Query(
		`SELECT variant, COUNT(*),
		        COALESCE(SUM(outcome = ?), 0),
		        COALESCE(SUM(outcome = ?), 0),
		        COALESCE(SUM(cops_killed), 0),
		        MAX(created_at)
		 FROM deployments
		 GROUP BY variant`,
		dispatch.OutcomeHit, dispatch.OutcomeBypassed,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get variant stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]*VariantStats)
	for rows.Next() {
		var v VariantStats
		var lastDeployed any
		if err := rows.Scan(&v.Variant, &v.Deployments, &v.Hits, &v.Bypasses, &v.CopsKilled, &lastDeployed); err != nil {
			return nil, fmt.Errorf("storage: cannot scan stats row: %w", err)
		}

		switch t := lastDeployed.(type) {
		case time.Time:
			v.LastDeployed = t
		case string:
			if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
				v.LastDeployed = parsed
			}
		}

		stats[v.Variant] = &v
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return stats, nil
}
