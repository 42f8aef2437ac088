package yamlconnector

import (
	"fmt"
	"strings"
)

const idPlaceholder = "{id}"

type Config struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Enabled     *bool  `yaml:"enabled"`
	Priority    int    `yaml:"priority"`
	URLTemplate string `yaml:"url_template"`
	HealthURL   string `yaml:"health_url"`
	Response    struct {
		ExternalIDPath     string `yaml:"external_id_path"`
		EpisodesPath       string `yaml:"episodes_path"`
		EpisodeNumberField string `yaml:"episode_number_field"`
		EpisodeIDField     string `yaml:"episode_id_field"`
		EpisodeTitlePath   string `yaml:"episode_title_path"`
	} `yaml:"response"`
}

func (c *Config) normalizeAndValidate() error {
	c.Key = strings.TrimSpace(c.Key)
	c.Name = strings.TrimSpace(c.Name)
	c.URLTemplate = strings.TrimSpace(c.URLTemplate)
	c.HealthURL = strings.TrimSpace(c.HealthURL)

	if c.Key == "" {
		return fmt.Errorf("key is required")
	}
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.URLTemplate == "" {
		return fmt.Errorf("url_template is required")
	}
	if !strings.Contains(c.URLTemplate, idPlaceholder) {
		return fmt.Errorf("url_template must contain %s", idPlaceholder)
	}
	if c.Priority < 0 {
		return fmt.Errorf("priority must not be negative")
	}

	if strings.TrimSpace(c.Response.ExternalIDPath) == "" {
		c.Response.ExternalIDPath = "mappings.anidb_id"
	}
	if strings.TrimSpace(c.Response.EpisodesPath) == "" {
		c.Response.EpisodesPath = "episodes"
	}
	if strings.TrimSpace(c.Response.EpisodeNumberField) == "" {
		c.Response.EpisodeNumberField = "episode"
	}
	if strings.TrimSpace(c.Response.EpisodeIDField) == "" {
		c.Response.EpisodeIDField = "anidbEid"
	}
	if strings.TrimSpace(c.Response.EpisodeTitlePath) == "" {
		c.Response.EpisodeTitlePath = "title.en"
	}

	return nil
}

func (c *Config) isEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}
