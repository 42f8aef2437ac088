package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/gabriel/release-panels/internal/models"
)

type MappingSlotRepository struct {
	db *sql.DB
}

func NewMappingSlotRepository(db *sql.DB) *MappingSlotRepository {
	return &MappingSlotRepository{db: db}
}

func (r *MappingSlotRepository) Load() (*models.MappingSlot, error) {
	row := r.db.QueryRow(`
		SELECT title_id, found, external_id, source, episodes_json, updated_at
		FROM mapping_slot
		WHERE id = 1
	`)

	var (
		slot         models.MappingSlot
		found        bool
		externalID   string
		source       string
		episodesJSON string
	)
	if err := row.Scan(&slot.TitleID, &found, &externalID, &source, &episodesJSON, &slot.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load mapping slot: %w", err)
	}

	if !found {
		return &slot, nil
	}

	episodes := make([]models.EpisodeRef, 0)
	if err := json.Unmarshal([]byte(episodesJSON), &episodes); err != nil {
		return nil, fmt.Errorf("decode mapping slot episodes: %w", err)
	}
	slot.Mapping = &models.ExternalMapping{
		TitleID:    slot.TitleID,
		ExternalID: externalID,
		Source:     source,
		Episodes:   episodes,
	}

	return &slot, nil
}

// Save overwrites the slot. A nil mapping stores a miss for titleID.
func (r *MappingSlotRepository) Save(titleID int64, mapping *models.ExternalMapping) error {
	var (
		found        bool
		externalID   string
		source       string
		episodesJSON = "[]"
	)
	if mapping != nil {
		found = true
		externalID = mapping.ExternalID
		source = mapping.Source
		if len(mapping.Episodes) > 0 {
			encoded, err := json.Marshal(mapping.Episodes)
			if err != nil {
				return fmt.Errorf("encode mapping slot episodes: %w", err)
			}
			episodesJSON = string(encoded)
		}
	}

	_, err := r.db.Exec(`
		INSERT INTO mapping_slot (id, title_id, found, external_id, source, episodes_json, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			title_id = excluded.title_id,
			found = excluded.found,
			external_id = excluded.external_id,
			source = excluded.source,
			episodes_json = excluded.episodes_json,
			updated_at = CURRENT_TIMESTAMP
	`, titleID, found, externalID, source, episodesJSON)
	if err != nil {
		return fmt.Errorf("save mapping slot: %w", err)
	}

	return nil
}

func (r *MappingSlotRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM mapping_slot WHERE id = 1`); err != nil {
		return fmt.Errorf("clear mapping slot: %w", err)
	}
	return nil
}
