package database

import (
	"database/sql"
	"fmt"
)

func SeedDefaults(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}

	_, err = tx.Exec(`
		INSERT OR IGNORE INTO search_preferences (id, sort_criteria, filter_mode, search_mode)
		VALUES (1, 'seeders', 'include', 'full');
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("seed search preferences: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}

	return nil
}
