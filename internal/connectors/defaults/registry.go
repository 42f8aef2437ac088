package defaults

import (
	"fmt"
	"net/http"

	"github.com/gabriel/release-panels/internal/connectors"
	"github.com/gabriel/release-panels/internal/connectors/native/animappings"
	"github.com/gabriel/release-panels/internal/connectors/yamlconnector"
)

// NewRegistry registers the built-in mapping services followed by any YAML-defined ones.
// A YAML load error is returned alongside the usable registry.
func NewRegistry(sourcesPath string, client *http.Client) (*connectors.Registry, error) {
	registry := connectors.NewRegistry()
	builtIn := []*animappings.Connector{animappings.NewAniZip(), animappings.NewZenshin()}
	reserved := make([]string, 0, len(builtIn))
	for _, c := range builtIn {
		_ = registry.Register(withClient(c, client))
		reserved = append(reserved, c.Key())
	}

	loaded, loadErr := yamlconnector.LoadFromDir(sourcesPath, client, reserved...)
	for _, connector := range loaded {
		if err := registry.Register(connector); err != nil {
			if loadErr == nil {
				loadErr = fmt.Errorf("register mapping source %q: %w", connector.Key(), err)
			}
		}
	}

	return registry, loadErr
}

func withClient(c *animappings.Connector, client *http.Client) *animappings.Connector {
	if client == nil {
		return c
	}
	return animappings.NewConnectorWithOptions(c.Key(), c.Name(), c.BaseURL(), c.Priority(), client)
}
