// Package service owns the collaborators behind the rank badges and attaches
// one indicator per open beatmap panel.
package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/okian/localrank/internal/adapters/eventbus"
	"github.com/okian/localrank/internal/adapters/repository"
	"github.com/okian/localrank/internal/domain/bindable"
	"github.com/okian/localrank/internal/domain/identity"
	"github.com/okian/localrank/internal/domain/model"
	"github.com/okian/localrank/internal/domain/types"
	"github.com/okian/localrank/internal/indicator"
	"github.com/okian/localrank/internal/scheduler"
	"github.com/okian/localrank/pkg/logger"
)

const (
	defaultTickInterval      = time.Second / 60
	defaultSchedulerCapacity = 10_000
	shutdownTimeout          = 5 * time.Second
)

// Service is the container behind the inspection API.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   *repository.ScoreStore
	ruleset *bindable.Bindable[*model.RulesetInfo]
	session *identity.Session
	sched   *scheduler.Scheduler
	loop    *scheduler.Loop
	bridge  *eventbus.Bridge
	panels  map[int64]*indicator.LocalRankIndicator

	// Configuration
	tickInterval      time.Duration
	schedulerCapacity int
	defaultRuleset    int
	defaultUser       model.User
	seedFile          string
	publisher         message.Publisher
	manualTicks       bool

	// State
	started bool

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		tickInterval:      defaultTickInterval,
		schedulerCapacity: defaultSchedulerCapacity,
		defaultRuleset:    model.RulesetOsu.ID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the store, selectors, scheduler and event bridge, then starts
// the update loop. Starting a started service does nothing.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting localrank service...")

	ruleset, ok := model.LookupRuleset(s.defaultRuleset)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownRuleset, s.defaultRuleset)
	}

	store := repository.NewScoreStore(ctx, repository.WithLogger(s.logger.Named("store")))
	if s.seedFile != "" {
		n, err := store.LoadSeed(ctx, s.seedFile)
		if err != nil {
			_ = store.Close()
			return fmt.Errorf("failed to load seed scores: %w", err)
		}
		s.logger.Info(ctx, "seed scores loaded", logger.Int("count", n))
	}

	var bridge *eventbus.Bridge
	if s.publisher != nil {
		b, err := eventbus.NewBridge(store, s.publisher, eventbus.WithLogger(s.logger.Named("eventbus")))
		if err != nil {
			_ = store.Close()
			return fmt.Errorf("failed to bridge score events: %w", err)
		}
		bridge = b
	}

	session := identity.NewSession(identity.WithLogger(s.logger.Named("identity")))
	if s.defaultUser.ID > 0 {
		if err := session.Login(ctx, s.defaultUser); err != nil {
			_ = store.Close()
			return fmt.Errorf("failed to log in default user: %w", err)
		}
	}

	s.store = store
	s.bridge = bridge
	s.session = session
	s.ruleset = bindable.New(&ruleset)
	s.sched = scheduler.New(
		scheduler.WithCapacity(s.schedulerCapacity),
		scheduler.WithLogger(s.logger.Named("scheduler")),
	)
	s.panels = make(map[int64]*indicator.LocalRankIndicator)

	if !s.manualTicks {
		s.loop = scheduler.NewLoop(s.sched,
			scheduler.WithInterval(s.tickInterval),
			scheduler.WithLoopLogger(s.logger.Named("loop")),
		)
		go s.loop.Run(context.WithoutCancel(ctx))
	}

	s.started = true
	s.logger.Info(ctx, "localrank service started",
		logger.Duration("tickInterval", s.tickInterval),
		logger.Int("schedulerCapacity", s.schedulerCapacity),
		logger.String("ruleset", ruleset.ShortName),
		logger.Int("scores", store.Count(ctx)),
	)
	return nil
}

// Stop disposes every panel, drains the update loop and releases the store.
// Stopping a stopped service does nothing.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping localrank service...")

	for id, ind := range s.panels {
		ind.Dispose(ctx)
		delete(s.panels, id)
	}

	var firstErr error
	if s.loop != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		if err := s.loop.Shutdown(shutdownCtx); err != nil {
			firstErr = err
		}
		cancel()
		s.loop = nil
	}
	s.sched.Stop()

	if s.bridge != nil {
		_ = s.bridge.Close()
		s.bridge = nil
	}
	_ = s.store.Close()

	s.started = false
	s.logger.Info(ctx, "localrank service stopped")
	return firstErr
}

// Tick runs one scheduler update on the caller's goroutine and returns how
// many updates ran. It is meant for services built WithManualTicks.
func (s *Service) Tick(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return 0, ErrNotStarted
	}
	return s.sched.Update(ctx), nil
}

// Attach opens a panel for beatmap and activates its indicator. Attaching an
// already open beatmap returns the existing panel.
func (s *Service) Attach(ctx context.Context, beatmap model.BeatmapInfo) (types.Panel, error) {
	if beatmap.ID <= 0 {
		return types.Panel{}, fmt.Errorf("%w: id %d", ErrInvalidBeatmap, beatmap.ID)
	}

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return types.Panel{}, ErrNotStarted
	}
	ind, ok := s.panels[beatmap.ID]
	if !ok {
		ind = indicator.New(&beatmap, indicator.Dependencies{
			Scores:    s.store,
			Ruleset:   s.ruleset,
			Identity:  s.session,
			Scheduler: s.sched,
		},
			indicator.WithLogger(s.logger.Named("indicator")),
			indicator.WithInvalidate(s.invalidated(beatmap.ID)),
		)
		s.panels[beatmap.ID] = ind
	}
	s.mu.Unlock()

	if !ok {
		ind.Activate(ctx)
		s.logger.Debug(ctx, "panel attached", logger.Int64("beatmap_id", beatmap.ID))
	}
	return panelOf(ind), nil
}

// Detach disposes the panel for beatmapID.
func (s *Service) Detach(ctx context.Context, beatmapID int64) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	ind, ok := s.panels[beatmapID]
	delete(s.panels, beatmapID)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %d", ErrPanelNotFound, beatmapID)
	}
	ind.Dispose(ctx)
	s.logger.Debug(ctx, "panel detached", logger.Int64("beatmap_id", beatmapID))
	return nil
}

// Panel returns the badge state for beatmapID.
func (s *Service) Panel(ctx context.Context, beatmapID int64) (types.Panel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return types.Panel{}, ErrNotStarted
	}
	ind, ok := s.panels[beatmapID]
	if !ok {
		return types.Panel{}, fmt.Errorf("%w: %d", ErrPanelNotFound, beatmapID)
	}
	return panelOf(ind), nil
}

// Panels returns every open panel ordered by beatmap id.
func (s *Service) Panels(ctx context.Context) ([]types.Panel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	out := make([]types.Panel, 0, len(s.panels))
	for _, ind := range s.panels {
		out = append(out, panelOf(ind))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BeatmapID < out[j].BeatmapID })
	return out, nil
}

// AddScore stores a new score.
func (s *Service) AddScore(ctx context.Context, score model.ScoreInfo) (model.ScoreInfo, error) {
	store, err := s.scoreStore()
	if err != nil {
		return model.ScoreInfo{}, err
	}
	return store.Add(ctx, score)
}

// DeleteScore marks a score as pending deletion.
func (s *Service) DeleteScore(ctx context.Context, id uuid.UUID) error {
	store, err := s.scoreStore()
	if err != nil {
		return err
	}
	return store.Delete(ctx, id)
}

// RestoreScore clears a pending deletion.
func (s *Service) RestoreScore(ctx context.Context, id uuid.UUID) error {
	store, err := s.scoreStore()
	if err != nil {
		return err
	}
	return store.Undelete(ctx, id)
}

// PurgeDeleted removes every score pending deletion.
func (s *Service) PurgeDeleted(ctx context.Context) (int, error) {
	store, err := s.scoreStore()
	if err != nil {
		return 0, err
	}
	return store.PurgeDeleted(ctx), nil
}

// SetRuleset selects the ruleset with id.
func (s *Service) SetRuleset(ctx context.Context, id int) (model.RulesetInfo, error) {
	r, ok := model.LookupRuleset(id)
	if !ok {
		return model.RulesetInfo{}, fmt.Errorf("%w: %d", ErrUnknownRuleset, id)
	}
	s.mu.RLock()
	if !s.started {
		s.mu.RUnlock()
		return model.RulesetInfo{}, ErrNotStarted
	}
	ruleset := s.ruleset
	s.mu.RUnlock()

	if cur := ruleset.Value(); cur != nil && cur.ID == r.ID {
		return r, nil
	}
	ruleset.Set(&r)
	s.logger.Info(ctx, "ruleset changed", logger.String("ruleset", r.ShortName))
	return r, nil
}

// Ruleset returns the selected ruleset, or nil.
func (s *Service) Ruleset() *model.RulesetInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil
	}
	if r := s.ruleset.Value(); r != nil {
		c := *r
		return &c
	}
	return nil
}

// Login makes u the local user.
func (s *Service) Login(ctx context.Context, u model.User) error {
	session, err := s.identity()
	if err != nil {
		return err
	}
	return session.Login(ctx, u)
}

// Logout clears the local user.
func (s *Service) Logout(ctx context.Context) error {
	session, err := s.identity()
	if err != nil {
		return err
	}
	session.Logout(ctx)
	return nil
}

// CurrentUser returns the local user, or nil.
func (s *Service) CurrentUser() *model.User {
	session, err := s.identity()
	if err != nil {
		return nil
	}
	return session.CurrentUser()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":           s.started,
		"tickInterval":      s.tickInterval.String(),
		"schedulerCapacity": s.schedulerCapacity,
	}
	if s.started {
		stats["panels"] = len(s.panels)
		stats["scores"] = s.store.Count(ctx)
		stats["queueLength"] = s.sched.Len()
		if r := s.ruleset.Value(); r != nil {
			stats["ruleset"] = r.ShortName
		}
		if u := s.session.CurrentUser(); u != nil {
			stats["user"] = u.Username
		}
	}
	return stats
}

func (s *Service) scoreStore() (*repository.ScoreStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

func (s *Service) identity() (*identity.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.session, nil
}

func (s *Service) invalidated(beatmapID int64) func(bool) {
	return func(present bool) {
		s.logger.Debug(context.Background(), "panel invalidated",
			logger.Int64("beatmap_id", beatmapID),
			logger.Bool("present", present),
		)
	}
}

func panelOf(ind *indicator.LocalRankIndicator) types.Panel {
	st := ind.State()
	p := types.Panel{
		HasRank: st.HasRank,
		Pending: st.Pending,
		Present: st.Present,
	}
	if b := ind.Beatmap(); b != nil {
		p.BeatmapID = b.ID
		p.Title = b.Title
		p.Version = b.Version
	}
	if st.HasRank {
		p.Rank = st.Rank.String()
	}
	return p
}
