package session

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/sync/singleflight"

	"github.com/gabriel/release-panels/internal/curated"
	"github.com/gabriel/release-panels/internal/host"
	"github.com/gabriel/release-panels/internal/models"
	"github.com/gabriel/release-panels/internal/panels"
	"github.com/gabriel/release-panels/internal/render"
	"github.com/gabriel/release-panels/internal/scheduler"
)

const (
	resultsSelector = ".index-results"
	indexSelector   = ".index-releases"
)

type CuratedSource interface {
	Fetch(ctx context.Context, titleID int64) (*models.CuratedReleaseData, error)
}

type ControllerConfig struct {
	DebounceWindow time.Duration
	// PollInterval enables version polling for hosts that do not push mutations.
	PollInterval time.Duration
	FetchTimeout time.Duration
}

// Controller keeps both panels present, ordered and owned by the title the host page
// currently shows. It reacts to page mutations through a debouncer.
type Controller struct {
	page       *host.Page
	session    *Session
	curated    CuratedSource
	reconciler *panels.Reconciler
	logger     *slog.Logger
	cfg        ControllerConfig

	debouncer   *scheduler.Debouncer
	poller      *scheduler.Poller
	unsubscribe func()
	flight      singleflight.Group

	mu           sync.Mutex
	curatedTitle int64
	curatedData  *models.CuratedReleaseData
	curatedErr   error
	lastTitle    int64
	// renderedRunning is true once the full panel was drawn for the active run.
	renderedRunning bool
}

func NewController(page *host.Page, sess *Session, source CuratedSource, reconciler *panels.Reconciler, cfg ControllerConfig, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if reconciler == nil {
		reconciler = panels.New(panels.DefaultOptions())
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 20 * time.Second
	}

	c := &Controller{
		page:       page,
		session:    sess,
		curated:    source,
		reconciler: reconciler,
		logger:     logger,
		cfg:        cfg,
	}
	c.debouncer = scheduler.NewDebouncer(cfg.DebounceWindow, func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.FetchTimeout)
		defer cancel()
		c.Refresh(ctx)
	})
	if cfg.PollInterval > 0 {
		c.poller = scheduler.NewPoller(page, c.debouncer.Trigger, scheduler.PollerConfig{Interval: cfg.PollInterval}, logger)
	}
	return c
}

// Start subscribes to page mutations and session changes.
func (c *Controller) Start(ctx context.Context) {
	c.unsubscribe = c.page.OnMutation(c.debouncer.Trigger)
	c.session.SetOnChange(c.RenderIndex)
	if c.poller != nil {
		c.poller.Start(ctx)
	}
	c.debouncer.Trigger()
}

func (c *Controller) Stop() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.session.SetOnChange(nil)
	c.debouncer.Stop()
	if c.poller != nil {
		c.poller.StopWait(2 * time.Second)
	}
}

// Refresh runs one reconcile pass against the current page.
func (c *Controller) Refresh(ctx context.Context) {
	titleID, ok := c.page.TitleID()
	if !ok {
		removed := 0
		c.page.Do(func(doc *html.Node) {
			removed = c.reconciler.RemoveAll(doc)
		})
		if removed > 0 {
			c.logger.Debug("left title page, panels removed", "count", removed)
		}
		c.leaveTitle()
		return
	}
	c.enterTitle(titleID)

	needsContent := false
	c.page.Do(func(doc *html.Node) {
		c.reconciler.RemoveStale(doc, titleID)
		curatedPanel := c.reconciler.Find(doc, panels.KindCurated)
		indexPanel := c.reconciler.Find(doc, panels.KindIndex)
		if curatedPanel == nil || indexPanel == nil {
			needsContent = true
			return
		}
		c.reconciler.Reconcile(doc, panels.KindCurated, titleID, "")
		c.reconciler.Reconcile(doc, panels.KindIndex, titleID, panels.KindCurated)
	})
	if !needsContent {
		return
	}

	curatedNode := c.curatedContent(ctx, titleID)
	indexNode := c.indexContent(ctx, titleID)

	if current, ok := c.page.TitleID(); !ok || current != titleID {
		c.logger.Debug("page changed during refresh, dropping panels", "titleId", titleID)
		return
	}

	c.page.Do(func(doc *html.Node) {
		curatedResult := c.reconciler.Place(doc, panels.KindCurated, curatedNode, titleID, "")
		indexResult := c.reconciler.Place(doc, panels.KindIndex, indexNode, titleID, panels.KindCurated)
		c.logger.Debug("panels placed", "titleId", titleID, "curated", curatedResult, "index", indexResult)
	})
}

func (c *Controller) enterTitle(titleID int64) {
	c.mu.Lock()
	previous := c.lastTitle
	c.lastTitle = titleID
	c.mu.Unlock()

	if previous != 0 && previous != titleID {
		c.session.Reset()
	}
}

func (c *Controller) leaveTitle() {
	c.mu.Lock()
	previous := c.lastTitle
	c.lastTitle = 0
	c.mu.Unlock()

	if previous != 0 {
		c.session.Reset()
	}
}

// curatedContent fetches at most once per title, even when mutations arrive in bursts.
func (c *Controller) curatedContent(ctx context.Context, titleID int64) *html.Node {
	data, err := c.curatedFor(ctx, titleID)

	var node *html.Node
	var renderErr error
	switch {
	case err == nil:
		node, renderErr = render.CuratedPanel(data)
	case errors.Is(err, curated.ErrNotFound):
		node, renderErr = render.CuratedMessage("No curated releases found")
	default:
		c.logger.Warn("curated fetch failed", "titleId", titleID, "error", err)
		node, renderErr = render.CuratedMessage("Error loading curated releases")
	}
	if renderErr != nil {
		c.logger.Error("render curated panel", "titleId", titleID, "error", renderErr)
		return nil
	}
	return node
}

func (c *Controller) curatedFor(ctx context.Context, titleID int64) (*models.CuratedReleaseData, error) {
	c.mu.Lock()
	if c.curatedTitle == titleID && (c.curatedData != nil || errors.Is(c.curatedErr, curated.ErrNotFound)) {
		data, err := c.curatedData, c.curatedErr
		c.mu.Unlock()
		return data, err
	}
	c.mu.Unlock()

	value, err, _ := c.flight.Do(strconv.FormatInt(titleID, 10), func() (any, error) {
		return c.curated.Fetch(ctx, titleID)
	})
	data, _ := value.(*models.CuratedReleaseData)

	c.mu.Lock()
	c.curatedTitle = titleID
	c.curatedData = data
	c.curatedErr = err
	c.mu.Unlock()
	return data, err
}

func (c *Controller) indexContent(ctx context.Context, titleID int64) *html.Node {
	node, err := render.IndexPanel(c.indexView(ctx, titleID))
	if err != nil {
		c.logger.Error("render index panel", "titleId", titleID, "error", err)
		return nil
	}
	return node
}

func (c *Controller) indexView(ctx context.Context, titleID int64) render.IndexView {
	state := c.session.Panel()
	view := render.IndexView{
		Mode:            string(state.Mode),
		SelectedEpisode: state.SelectedEpisode,
		Running:         state.Status.Running(),
		Status:          state.Status.Message,
		Criteria:        string(state.Criteria),
		FilterText:      state.FilterText,
		FilterMode:      string(state.FilterMode),
		Items:           state.Items,
	}
	if state.Mode == ModeEpisode {
		episodes, err := c.session.Episodes(ctx, titleID)
		if err != nil {
			view.Status = UserMessage(err)
		}
		view.Episodes = episodes
	}
	return view
}

// RenderIndex redraws the index panel from session state. Rendering does not count as a
// page mutation, so it never re-enters the reconcile pass.
func (c *Controller) RenderIndex() {
	titleID, ok := c.page.TitleID()
	if !ok {
		return
	}

	state := c.session.Panel()
	if state.Status.TitleID != 0 && state.Status.TitleID != titleID {
		return
	}

	c.mu.Lock()
	partial := state.Status.Running() && c.renderedRunning
	c.renderedRunning = state.Status.Running()
	c.mu.Unlock()

	var (
		node     *html.Node
		err      error
		selector string
	)
	if partial {
		node, err = render.Results(state.Status.Message, state.Items)
		selector = resultsSelector
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.FetchTimeout)
		defer cancel()
		node, err = render.IndexPanel(c.indexView(ctx, titleID))
		selector = indexSelector
	}
	if err != nil {
		c.logger.Error("render index panel", "titleId", titleID, "error", err)
		return
	}

	c.page.Do(func(doc *html.Node) {
		c.reconciler.ReplaceContent(doc, panels.KindIndex, titleID, selector, node)
	})
}
