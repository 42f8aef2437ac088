package yamlconnector

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel/release-panels/internal/connectors"
	"gopkg.in/yaml.v3"
)

// LoadFromDir reads every enabled *.yaml / *.yml mapping source in dirPath, in file name
// order. Keys listed in reserved belong to built-in sources; a file claiming one of
// them, or a key already claimed by an earlier file, is reported and skipped.
func LoadFromDir(dirPath string, client *http.Client, reserved ...string) ([]connectors.Connector, error) {
	trimmed := strings.TrimSpace(dirPath)
	if trimmed == "" {
		return nil, nil
	}

	files, err := sourceFiles(trimmed)
	if err != nil {
		return nil, err
	}

	claimed := make(map[string]string, len(reserved)+len(files))
	for _, key := range reserved {
		claimed[normalizeKey(key)] = "built-in source"
	}

	loaded := make([]connectors.Connector, 0, len(files))
	problems := make([]string, 0)

	for _, filePath := range files {
		name := filepath.Base(filePath)
		cfg, err := readConfig(filePath)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		if !cfg.isEnabled() {
			continue
		}

		key := normalizeKey(cfg.Key)
		if owner, taken := claimed[key]; taken && key != "" {
			problems = append(problems, fmt.Sprintf("%s: key %q already used by %s", name, cfg.Key, owner))
			continue
		}

		connector, err := NewConnector(cfg, client)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		claimed[key] = name
		loaded = append(loaded, connector)
	}

	if len(problems) > 0 {
		return loaded, fmt.Errorf("mapping sources failed to load: %s", strings.Join(problems, " | "))
	}
	return loaded, nil
}

func sourceFiles(dirPath string) ([]string, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read mapping sources dir: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dirPath, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func readConfig(filePath string) (Config, error) {
	var cfg Config
	content, err := os.ReadFile(filePath)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
