package session

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gabriel/release-panels/internal/mergestore"
	"github.com/gabriel/release-panels/internal/models"
	"github.com/gabriel/release-panels/internal/notifications"
	"github.com/gabriel/release-panels/internal/resolver"
	"github.com/gabriel/release-panels/internal/search"
)

var (
	ErrNoEpisodeSelected = errors.New("no episode selected")
	ErrNoMapping         = errors.New("no mapping found")
	ErrUnknownMode       = errors.New("unknown search mode")
)

// UserMessage maps a session error onto the text shown in the panel status line.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoEpisodeSelected):
		return "Please select an episode"
	case errors.Is(err, ErrNoMapping):
		return "No mapping found"
	}
	return "Error searching"
}

type Mode string

const (
	ModeFull    Mode = "full"
	ModeEpisode Mode = "episode"
)

func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeFull:
		return ModeFull, nil
	case ModeEpisode:
		return ModeEpisode, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, raw)
}

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateComplete State = "complete"
	StateEmpty    State = "empty"
	StateStopped  State = "stopped"
	StateError    State = "error"
)

type Status struct {
	State   State  `json:"state"`
	Message string `json:"message"`
	Count   int    `json:"count"`
	RunID   string `json:"runId,omitempty"`
	TitleID int64  `json:"titleId,omitempty"`
}

// Running reports whether the status belongs to an active run.
func (s Status) Running() bool {
	return s.State == StateRunning
}

type MappingResolver interface {
	Resolve(ctx context.Context, titleID int64) (*models.ExternalMapping, error)
}

type Streamer interface {
	Stream(ctx context.Context, target search.Target) (iter.Seq2[models.IndexResult, error], error)
}

type SlotStore interface {
	Load() (*models.MappingSlot, error)
	Save(titleID int64, mapping *models.ExternalMapping) error
}

type PreferenceStore interface {
	Get() (*models.SearchPreferences, error)
	Update(prefs models.SearchPreferences) (*models.SearchPreferences, error)
}

type Config struct {
	Resolver    MappingResolver
	Searcher    Streamer
	Slots       SlotStore
	Preferences PreferenceStore
	Notifier    notifications.Notifier
	Logger      *slog.Logger
	// OnChange is called after every status or result change, outside the session lock.
	OnChange func()
}

// SearchRequest starts a run for a title.
type SearchRequest struct {
	TitleID int64
	Mode    Mode
	Episode string
}

type run struct {
	id      string
	titleID int64
	cancel  context.CancelFunc
	done    chan struct{}
	count   int
}

// PanelState is what the index panel needs to render.
type PanelState struct {
	Mode            Mode
	SelectedEpisode string
	Criteria        mergestore.Criteria
	FilterText      string
	FilterMode      mergestore.FilterMode
	Status          Status
	Items           []mergestore.Item
}

// Session owns the state of one open title: the single-slot mapping cache, the active
// search run and the merge store its results land in.
type Session struct {
	resolver    MappingResolver
	searcher    Streamer
	slots       SlotStore
	preferences PreferenceStore
	notifier    notifications.Notifier
	logger      *slog.Logger
	onChange    func()

	store *mergestore.Store

	mu       sync.Mutex
	slot     *models.MappingSlot
	slotRead bool
	active   *run
	status   Status
	mode     Mode
	episode  string
}

func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notifications.NoopNotifier{}
	}

	s := &Session{
		resolver:    cfg.Resolver,
		searcher:    cfg.Searcher,
		slots:       cfg.Slots,
		preferences: cfg.Preferences,
		notifier:    notifier,
		logger:      logger,
		onChange:    cfg.OnChange,
		store:       mergestore.New(),
		status:      Status{State: StateIdle},
		mode:        ModeFull,
	}
	s.restorePreferences()
	return s
}

// SetOnChange replaces the change callback.
func (s *Session) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Session) restorePreferences() {
	if s.preferences == nil {
		return
	}
	prefs, err := s.preferences.Get()
	if err != nil {
		s.logger.Warn("failed to load search preferences", "error", err)
		return
	}
	if prefs == nil {
		return
	}
	if criteria, err := mergestore.ParseCriteria(prefs.SortCriteria); err == nil {
		s.store.ChangeSort(criteria)
	}
	if mode, err := mergestore.ParseFilterMode(prefs.FilterMode); err == nil {
		s.store.SetFilter("", mode)
	}
	if mode, err := ParseMode(prefs.SearchMode); err == nil {
		s.mode = mode
	}
}

// Mapping returns the mapping for titleID, consulting the single cached slot first.
// Hits and misses are both cached; a lookup for a different title evicts the slot.
func (s *Session) Mapping(ctx context.Context, titleID int64) (*models.ExternalMapping, error) {
	if slot, ok := s.cachedSlot(titleID); ok {
		if slot.Mapping == nil {
			return nil, ErrNoMapping
		}
		return slot.Mapping, nil
	}

	mapping, err := s.resolver.Resolve(ctx, titleID)
	if err != nil && !errors.Is(err, resolver.ErrNotFound) {
		return nil, err
	}

	s.storeSlot(titleID, mapping)
	if mapping == nil {
		return nil, ErrNoMapping
	}
	return mapping, nil
}

func (s *Session) cachedSlot(titleID int64) (*models.MappingSlot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.slotRead && s.slots != nil {
		s.slotRead = true
		slot, err := s.slots.Load()
		if err != nil {
			s.logger.Warn("failed to load cached mapping", "error", err)
		} else {
			s.slot = slot
		}
	}
	if s.slot == nil || s.slot.TitleID != titleID {
		return nil, false
	}
	return s.slot, true
}

func (s *Session) storeSlot(titleID int64, mapping *models.ExternalMapping) {
	s.mu.Lock()
	s.slot = &models.MappingSlot{TitleID: titleID, Mapping: mapping, UpdatedAt: time.Now().UTC()}
	s.slotRead = true
	s.mu.Unlock()

	if s.slots == nil {
		return
	}
	if err := s.slots.Save(titleID, mapping); err != nil {
		s.logger.Warn("failed to persist cached mapping", "titleId", titleID, "error", err)
	}
}

// Episodes returns the regular episodes of titleID in ascending order.
func (s *Session) Episodes(ctx context.Context, titleID int64) ([]models.EpisodeRef, error) {
	mapping, err := s.Mapping(ctx, titleID)
	if err != nil {
		return nil, err
	}
	return resolver.RegularEpisodes(mapping), nil
}

// StartSearch toggles the run: with a run active it stops that run and returns its
// final status; otherwise it starts a new run for req.
func (s *Session) StartSearch(ctx context.Context, req SearchRequest) (Status, error) {
	s.mu.Lock()
	current := s.active
	s.mu.Unlock()
	if current != nil {
		return s.Stop(), nil
	}

	mode := req.Mode
	if mode == "" {
		mode = ModeFull
	}
	episode := strings.TrimSpace(req.Episode)
	if mode == ModeEpisode && episode == "" {
		return s.Status(), ErrNoEpisodeSelected
	}

	mapping, err := s.Mapping(ctx, req.TitleID)
	if err != nil {
		return s.Status(), err
	}

	s.mu.Lock()
	s.mode = mode
	s.episode = episode
	s.mu.Unlock()

	target := search.Target{ExternalID: mapping.ExternalID}
	if mode == ModeEpisode {
		ref, ok := resolver.FindEpisode(mapping, episode)
		if !ok {
			s.logger.Info("episode not in mapping", "titleId", req.TitleID, "episode", episode)
			return s.finishEmpty(req.TitleID), nil
		}
		target = search.Target{ExternalEpisodeID: ref.ExternalEpisodeID}
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	seq, err := s.searcher.Stream(runCtx, target)
	if err != nil {
		cancel()
		return s.Status(), err
	}

	r := &run{
		id:      uuid.NewString(),
		titleID: req.TitleID,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		cancel()
		return s.Stop(), nil
	}
	s.store.Reset()
	s.active = r
	s.status = Status{
		State:   StateRunning,
		Message: searchingMessage(0),
		RunID:   r.id,
		TitleID: r.titleID,
	}
	status := s.status
	s.mu.Unlock()

	s.logger.Info("search started", "runId", r.id, "titleId", r.titleID, "mode", mode)
	s.changed()

	go s.consume(runCtx, r, seq)
	return status, nil
}

func (s *Session) consume(ctx context.Context, r *run, seq iter.Seq2[models.IndexResult, error]) {
	defer close(r.done)

	failed := false
	for result, err := range seq {
		if err != nil {
			s.logger.Warn("search feed failed", "runId", r.id, "error", err)
			failed = true
			break
		}
		if !s.insert(r, result) {
			break
		}
		s.changed()
	}

	switch {
	case failed:
		s.finish(r, StateError)
	case ctx.Err() != nil:
		s.finish(r, StateStopped)
	default:
		s.finish(r, StateComplete)
	}
}

// insert adds result when r is still the active run.
func (s *Session) insert(r *run, result models.IndexResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != r {
		return false
	}
	if s.store.Insert(result) < 0 {
		return true
	}
	r.count++
	s.status.Count = r.count
	s.status.Message = searchingMessage(r.count)
	return true
}

// finish settles r exactly once. Later calls for the same run are ignored.
func (s *Session) finish(r *run, state State) Status {
	s.mu.Lock()
	if s.active != r {
		status := s.status
		s.mu.Unlock()
		return status
	}
	s.active = nil
	r.cancel()

	if state == StateComplete && r.count == 0 {
		state = StateEmpty
	}
	s.status = Status{
		State:   state,
		Message: finishedMessage(state, r.count),
		Count:   r.count,
		RunID:   r.id,
		TitleID: r.titleID,
	}
	status := s.status
	s.mu.Unlock()

	s.logger.Info("search finished", "runId", r.id, "titleId", r.titleID, "state", state, "count", r.count)
	event := notifications.RunEvent{
		RunID:      r.id,
		TitleID:    r.titleID,
		State:      string(state),
		Message:    status.Message,
		Count:      r.count,
		FinishedAt: time.Now().UTC(),
	}
	if err := s.notifier.Notify(context.Background(), event); err != nil {
		s.logger.Warn("run notification failed", "runId", r.id, "error", err)
	}
	s.changed()
	return status
}

func (s *Session) finishEmpty(titleID int64) Status {
	s.mu.Lock()
	s.store.Reset()
	s.status = Status{
		State:   StateEmpty,
		Message: finishedMessage(StateEmpty, 0),
		TitleID: titleID,
	}
	status := s.status
	s.mu.Unlock()

	s.changed()
	return status
}

// Stop cancels the active run. Without an active run it returns the current status.
func (s *Session) Stop() Status {
	s.mu.Lock()
	r := s.active
	s.mu.Unlock()
	if r == nil {
		return s.Status()
	}
	return s.finish(r, StateStopped)
}

// Wait blocks until the active run, if any, has drained its stream.
func (s *Session) Wait(ctx context.Context) Status {
	s.mu.Lock()
	r := s.active
	s.mu.Unlock()
	if r != nil {
		select {
		case <-r.done:
		case <-ctx.Done():
		}
	}
	return s.Status()
}

// Reset stops any run and clears results, as when the host leaves the title.
func (s *Session) Reset() {
	s.Stop()
	s.mu.Lock()
	s.store.Reset()
	s.status = Status{State: StateIdle}
	s.episode = ""
	s.mu.Unlock()
	s.changed()
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) ChangeSort(criteria mergestore.Criteria) {
	s.store.ChangeSort(criteria)
	s.savePreferences(models.SearchPreferences{SortCriteria: string(criteria)})
	s.changed()
}

func (s *Session) SetFilter(text string, mode mergestore.FilterMode) {
	s.store.SetFilter(text, mode)
	s.savePreferences(models.SearchPreferences{FilterMode: string(mode)})
	s.changed()
}

// SelectMode records the panel mode and episode selection without starting a run.
func (s *Session) SelectMode(mode Mode, episode string) {
	s.mu.Lock()
	s.mode = mode
	s.episode = strings.TrimSpace(episode)
	s.mu.Unlock()
	s.savePreferences(models.SearchPreferences{SearchMode: string(mode)})
	s.changed()
}

func (s *Session) savePreferences(prefs models.SearchPreferences) {
	if s.preferences == nil {
		return
	}
	if _, err := s.preferences.Update(prefs); err != nil {
		s.logger.Warn("failed to save search preferences", "error", err)
	}
}

// Result returns the stored result with the given stable index.
func (s *Session) Result(index int) (models.IndexResult, bool) {
	return s.store.Get(index)
}

func (s *Session) Panel() PanelState {
	filterText, filterMode := s.store.Filter()

	s.mu.Lock()
	defer s.mu.Unlock()
	return PanelState{
		Mode:            s.mode,
		SelectedEpisode: s.episode,
		Criteria:        s.store.Criteria(),
		FilterText:      filterText,
		FilterMode:      filterMode,
		Status:          s.status,
		Items:           s.store.View(),
	}
}

func (s *Session) changed() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func searchingMessage(count int) string {
	return fmt.Sprintf("Searching... Found %d sources", count)
}

func finishedMessage(state State, count int) string {
	switch state {
	case StateComplete:
		return fmt.Sprintf("Search complete. Found %d sources", count)
	case StateEmpty:
		return "No releases found with active seeders"
	case StateStopped:
		return fmt.Sprintf("Search stopped. Found %d sources", count)
	case StateError:
		return "Error searching"
	}
	return ""
}
