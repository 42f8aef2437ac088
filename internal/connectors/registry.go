package connectors

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type Registry struct {
	mu         sync.RWMutex
	connectors map[string]Connector
}

type Descriptor struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Priority int    `json:"priority"`
}

type HealthStatus struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

func NewRegistry() *Registry {
	return &Registry{connectors: map[string]Connector{}}
}

func (r *Registry) Register(connector Connector) error {
	if connector == nil {
		return fmt.Errorf("connector is nil")
	}

	key := normalizeKey(connector.Key())
	if key == "" {
		return fmt.Errorf("connector key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.connectors[key]; exists {
		return fmt.Errorf("connector %q already registered", key)
	}

	r.connectors[key] = connector
	return nil
}

func (r *Registry) Get(key string) (Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connector, ok := r.connectors[normalizeKey(key)]
	return connector, ok
}

// Ordered returns the connectors in consultation order: priority ascending, then key.
func (r *Registry) Ordered() []Connector {
	r.mu.RLock()
	list := make([]Connector, 0, len(r.connectors))
	for _, connector := range r.connectors {
		list = append(list, connector)
	}
	r.mu.RUnlock()

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Priority() != list[j].Priority() {
			return list[i].Priority() < list[j].Priority()
		}
		return normalizeKey(list[i].Key()) < normalizeKey(list[j].Key())
	})
	return list
}

func (r *Registry) List() []Descriptor {
	ordered := r.Ordered()
	items := make([]Descriptor, 0, len(ordered))
	for _, connector := range ordered {
		items = append(items, Descriptor{
			Key:      connector.Key(),
			Name:     connector.Name(),
			Kind:     connector.Kind(),
			Priority: connector.Priority(),
		})
	}
	return items
}

func (r *Registry) Health(ctx context.Context) []HealthStatus {
	ordered := r.Ordered()
	statuses := make([]HealthStatus, 0, len(ordered))
	for _, connector := range ordered {
		err := connector.HealthCheck(ctx)
		status := HealthStatus{
			Key:     connector.Key(),
			Name:    connector.Name(),
			Kind:    connector.Kind(),
			Healthy: err == nil,
		}
		if err != nil {
			status.Error = err.Error()
		}
		statuses = append(statuses, status)
	}

	return statuses
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
