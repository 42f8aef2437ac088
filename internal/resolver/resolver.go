package resolver

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/gabriel/release-panels/internal/connectors"
	"github.com/gabriel/release-panels/internal/models"
)

// ErrNotFound means no mapping source knew the title. Callers treat it as "no mapping available".
var ErrNotFound = errors.New("no mapping found")

type Sources interface {
	Ordered() []connectors.Connector
}

type Resolver struct {
	sources Sources
	logger  *slog.Logger
	group   singleflight.Group
}

func New(sources Sources, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{sources: sources, logger: logger}
}

// Resolve walks the sources in priority order and returns the first usable mapping.
// Each source is tried once; any failure falls through to the next one.
// Concurrent calls for the same title share one upstream walk.
func (r *Resolver) Resolve(ctx context.Context, titleID int64) (*models.ExternalMapping, error) {
	key := strconv.FormatInt(titleID, 10)
	value, err, _ := r.group.Do(key, func() (any, error) {
		return r.resolve(ctx, titleID)
	})
	if err != nil {
		return nil, err
	}
	return value.(*models.ExternalMapping), nil
}

func (r *Resolver) resolve(ctx context.Context, titleID int64) (*models.ExternalMapping, error) {
	for _, source := range r.sources.Ordered() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		mapping, err := source.LookupMapping(ctx, titleID)
		if err != nil {
			r.logger.Debug("mapping source missed", "source", source.Key(), "titleId", titleID, "error", err)
			continue
		}
		if mapping == nil || strings.TrimSpace(mapping.ExternalID) == "" {
			r.logger.Debug("mapping source returned no external id", "source", source.Key(), "titleId", titleID)
			continue
		}

		r.logger.Info("mapping resolved", "source", source.Key(), "titleId", titleID, "externalId", mapping.ExternalID)
		if mapping.Source == "" {
			mapping.Source = source.Key()
		}
		mapping.TitleID = titleID
		return mapping, nil
	}

	return nil, ErrNotFound
}

// RegularEpisodes drops specials (labels that are not positive integers) and orders the
// remaining episodes numerically.
func RegularEpisodes(mapping *models.ExternalMapping) []models.EpisodeRef {
	if mapping == nil {
		return []models.EpisodeRef{}
	}

	type numbered struct {
		number  int
		episode models.EpisodeRef
	}
	items := make([]numbered, 0, len(mapping.Episodes))
	for _, episode := range mapping.Episodes {
		number, err := strconv.Atoi(strings.TrimSpace(episode.EpisodeNumber))
		if err != nil || number <= 0 {
			continue
		}
		items = append(items, numbered{number: number, episode: episode})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].number < items[j].number
	})

	episodes := make([]models.EpisodeRef, 0, len(items))
	for _, item := range items {
		episodes = append(episodes, item.episode)
	}
	return episodes
}

// FindEpisode returns the episode whose label matches exactly.
func FindEpisode(mapping *models.ExternalMapping, episodeNumber string) (models.EpisodeRef, bool) {
	if mapping == nil {
		return models.EpisodeRef{}, false
	}
	episodeNumber = strings.TrimSpace(episodeNumber)
	for _, episode := range mapping.Episodes {
		if episode.EpisodeNumber == episodeNumber {
			return episode, true
		}
	}
	return models.EpisodeRef{}, false
}
