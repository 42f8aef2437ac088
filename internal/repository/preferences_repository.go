package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/gabriel/release-panels/internal/models"
)

type PreferencesRepository struct {
	db *sql.DB
}

func NewPreferencesRepository(db *sql.DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

func (r *PreferencesRepository) Get() (*models.SearchPreferences, error) {
	row := r.db.QueryRow(`
		SELECT sort_criteria, filter_mode, search_mode, updated_at
		FROM search_preferences
		WHERE id = 1
	`)

	var item models.SearchPreferences
	if err := row.Scan(&item.SortCriteria, &item.FilterMode, &item.SearchMode, &item.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get search preferences: %w", err)
	}

	return &item, nil
}

// Update writes only the non-empty fields of prefs.
func (r *PreferencesRepository) Update(prefs models.SearchPreferences) (*models.SearchPreferences, error) {
	assignments := make([]string, 0, 4)
	args := make([]any, 0, 3)
	if value := strings.TrimSpace(prefs.SortCriteria); value != "" {
		assignments = append(assignments, "sort_criteria = ?")
		args = append(args, value)
	}
	if value := strings.TrimSpace(prefs.FilterMode); value != "" {
		assignments = append(assignments, "filter_mode = ?")
		args = append(args, value)
	}
	if value := strings.TrimSpace(prefs.SearchMode); value != "" {
		assignments = append(assignments, "search_mode = ?")
		args = append(args, value)
	}
	if len(assignments) == 0 {
		return r.Get()
	}
	assignments = append(assignments, "updated_at = CURRENT_TIMESTAMP")

	result, err := r.db.Exec(
		`UPDATE search_preferences SET `+strings.Join(assignments, ", ")+` WHERE id = 1`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update search preferences: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update search preferences: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	return r.Get()
}
