package connectors

import (
	"context"
	"errors"

	"github.com/gabriel/release-panels/internal/models"
)

const (
	KindNative = "native"
	KindYAML   = "yaml"
)

// ErrNoMapping is returned by a connector that answered but knows no external id for the title.
var ErrNoMapping = errors.New("no mapping for title")

// Connector is one identifier-mapping upstream. Lower Priority values are consulted first.
type Connector interface {
	Key() string
	Name() string
	Kind() string
	Priority() int
	HealthCheck(ctx context.Context) error
	LookupMapping(ctx context.Context, titleID int64) (*models.ExternalMapping, error)
}
