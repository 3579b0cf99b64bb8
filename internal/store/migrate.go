package store

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		description TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS laws (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT,
		text TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'published'
			CHECK (status IN ('published', 'in_review', 'rejected')),
		first_seen_file_path TEXT,
		first_seen_line_number INTEGER,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);`,
	`CREATE INDEX IF NOT EXISTS idx_laws_status ON laws(status);`,
	`CREATE TABLE IF NOT EXISTS attributions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		law_id INTEGER NOT NULL REFERENCES laws(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		contact_type TEXT NOT NULL DEFAULT 'text',
		contact_value TEXT,
		note TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_attributions_law ON attributions(law_id);`,
	`CREATE TABLE IF NOT EXISTS law_categories (
		law_id INTEGER NOT NULL REFERENCES laws(id) ON DELETE CASCADE,
		category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
		PRIMARY KEY (law_id, category_id)
	);`,
	`CREATE TABLE IF NOT EXISTS votes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		law_id INTEGER NOT NULL REFERENCES laws(id) ON DELETE CASCADE,
		vote_type TEXT NOT NULL CHECK (vote_type IN ('up', 'down')),
		voter_identifier TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE(law_id, voter_identifier)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_votes_law ON votes(law_id, vote_type);`,
	`CREATE TABLE IF NOT EXISTS law_of_the_day_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		law_id INTEGER NOT NULL REFERENCES laws(id) ON DELETE CASCADE,
		featured_date TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errNotInitialized
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}
