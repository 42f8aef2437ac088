package http

import (
	"database/sql"
	"log/slog"
	nethttp "net/http"

	"github.com/gabriel/release-panels/internal/config"
	"github.com/gabriel/release-panels/internal/connectors"
	connectordefaults "github.com/gabriel/release-panels/internal/connectors/defaults"
	"github.com/gabriel/release-panels/internal/curated"
	"github.com/gabriel/release-panels/internal/fetchproxy"
	"github.com/gabriel/release-panels/internal/host"
	"github.com/gabriel/release-panels/internal/http/handlers"
	"github.com/gabriel/release-panels/internal/notifications"
	"github.com/gabriel/release-panels/internal/panels"
	"github.com/gabriel/release-panels/internal/repository"
	"github.com/gabriel/release-panels/internal/resolver"
	"github.com/gabriel/release-panels/internal/search"
	"github.com/gabriel/release-panels/internal/session"
)

// Services is everything the handlers talk to.
type Services struct {
	Sources    *connectors.Registry
	Curated    handlers.CuratedFetcher
	Session    *session.Session
	Page       *host.Page
	Controller *session.Controller
}

// NewServices wires the release pipeline from configuration. A mapping-source load error
// is returned alongside usable services.
func NewServices(cfg config.Config, db *sql.DB, logger *slog.Logger) (Services, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := &nethttp.Client{Timeout: cfg.HTTPTimeout}

	registry, registryErr := connectordefaults.NewRegistry(cfg.SourcesPath, client)

	searcher := search.New(fetchproxy.NewHTTPFetcher(client), search.Options{
		FeedURL:          cfg.IndexFeedURL,
		IndexBaseURL:     cfg.IndexBaseURL,
		LookupsPerSecond: cfg.IndexLookupsPerSecond,
		Concurrency:      cfg.IndexLookupConcurrency,
		Logger:           logger,
	})
	curatedClient := curated.NewClientWithOptions(cfg.CuratedAPIURL, cfg.PrivateTrackerSentinel, client)

	sessionCfg := session.Config{
		Resolver: resolver.New(registry, logger),
		Searcher: searcher,
		Notifier: newRunNotifier(cfg, client, logger),
		Logger:   logger,
	}
	if db != nil {
		sessionCfg.Slots = repository.NewMappingSlotRepository(db)
		sessionCfg.Preferences = repository.NewPreferencesRepository(db)
	}
	sess := session.New(sessionCfg)

	page := host.NewPage()
	controller := session.NewController(page, sess, curatedClient, panels.New(panels.DefaultOptions()), session.ControllerConfig{
		DebounceWindow: cfg.HostDebounce,
		PollInterval:   cfg.HostPollInterval,
		FetchTimeout:   cfg.HTTPTimeout,
	}, logger)

	return Services{
		Sources:    registry,
		Curated:    curatedClient,
		Session:    sess,
		Page:       page,
		Controller: controller,
	}, registryErr
}

func newRunNotifier(cfg config.Config, client *nethttp.Client, logger *slog.Logger) notifications.Notifier {
	logNotifier := notifications.NewLogNotifier(logger)
	if cfg.RunWebhookURL == "" {
		return logNotifier
	}
	webhook, err := notifications.NewWebhookNotifier(cfg.RunWebhookURL, client)
	if err != nil {
		logger.Warn("run webhook disabled", "error", err)
		return logNotifier
	}
	return notifications.NewMultiNotifier(logNotifier, webhook)
}
