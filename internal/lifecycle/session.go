package lifecycle

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/netwatch-oss/triggerkit/internal/errors"
	"github.com/netwatch-oss/triggerkit/internal/logger"
	"github.com/netwatch-oss/triggerkit/internal/observability/metrics"
	"github.com/netwatch-oss/triggerkit/internal/trigger"
)

// Operation names used in logs, metrics and errors.
const (
	opCommit  = "commit"
	opToggle  = "toggle"
	opDelete  = "delete"
	opRefresh = "refresh"
	opItems   = "items"
)

// DefaultItemCacheTTL is how long a host's item list is reused.
const DefaultItemCacheTTL = 5 * time.Minute

// Session owns the active trigger set of one editing session and is the
// only writer of it. Store round trips are the only blocking points; a
// second commit, toggle or delete for a record already in flight fails
// with ErrBusy instead of queueing.
type Session struct {
	store Store
	items ItemSource
	log   logger.Logger
	stats *metrics.Metrics

	mu       sync.RWMutex
	triggers []trigger.Trigger
	groups   []trigger.HostGroup

	inflightMu sync.Mutex
	inflight   map[string]struct{}

	itemCache *cache.Cache
	itemCalls singleflight.Group
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithMetrics records lifecycle metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.stats = m }
}

// WithItemCacheTTL overrides DefaultItemCacheTTL. A non-positive ttl
// disables caching.
func WithItemCacheTTL(ttl time.Duration) Option {
	return func(s *Session) {
		if ttl <= 0 {
			s.itemCache = nil
			return
		}
		s.itemCache = cache.New(ttl, 2*ttl)
	}
}

// NewSession creates a session with an empty active set. items may be nil,
// in which case Items always fails.
func NewSession(store Store, items ItemSource, opts ...Option) *Session {
	s := &Session{
		store:     store,
		items:     items,
		log:       logger.NewNopLogger(),
		inflight:  make(map[string]struct{}),
		itemCache: cache.New(DefaultItemCacheTTL, 2*DefaultItemCacheTTL),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.String("component", component))
	return s
}

// Refresh replaces the active set with the store's collection. On failure
// the active set is left as it was.
func (s *Session) Refresh(ctx context.Context) error {
	start := time.Now()
	list, err := s.store.ListTriggers(ctx)
	s.stats.ObserveStoreCall(opRefresh, time.Since(start))
	if err != nil {
		s.stats.ObserveLifecycle(opRefresh, metrics.OutcomeFailed)
		s.log.Error("failed to load triggers", logger.Error(err))
		return storeError(opRefresh, nil, err)
	}

	for i := range list {
		if list[i].LegacySeverity != "" {
			s.log.Warn("trigger uses legacy severity",
				logger.String("trigger_id", list[i].ID),
				logger.String("trigger_name", list[i].Name),
				logger.String("stored", list[i].LegacySeverity),
				logger.String("mapped", string(list[i].Severity)))
		}
	}

	s.mu.Lock()
	s.triggers = list
	s.regroupLocked()
	s.mu.Unlock()

	s.stats.ObserveLifecycle(opRefresh, metrics.OutcomeSuccess)
	s.log.Debug("triggers loaded", logger.Int("count", len(list)))
	return nil
}

// Triggers returns a copy of the active set in source order.
func (s *Session) Triggers() []trigger.Trigger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]trigger.Trigger, len(s.triggers))
	for i := range s.triggers {
		out[i] = s.triggers[i].Clone()
	}
	return out
}

// Groups returns the host grouping of the active set.
func (s *Session) Groups() []trigger.HostGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]trigger.HostGroup, len(s.groups))
	for i, g := range s.groups {
		out[i] = g
		out[i].Triggers = make([]trigger.Trigger, len(g.Triggers))
		for j := range g.Triggers {
			out[i].Triggers[j] = g.Triggers[j].Clone()
		}
	}
	return out
}

// Get returns the active trigger with the given ID.
func (s *Session) Get(id string) (trigger.Trigger, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return trigger.Trigger{}, false
	}
	return s.triggers[idx].Clone(), true
}

// NewDraft starts a new trigger for hostID.
func (s *Session) NewDraft(hostID string) *Draft {
	return newDraft(trigger.NewDraftTrigger(hostID), StateDraft)
}

// Edit loads an active trigger into a draft. The chains come from the
// stored structured form; the compiled text is regenerated from them.
func (s *Session) Edit(id string) (*Draft, error) {
	t, ok := s.Get(id)
	if !ok {
		return nil, notFoundError("edit", id)
	}
	return newDraft(t.ForEditing(), StateDraft), nil
}

// Commit validates the draft and, if it passes, creates or updates it in
// the store. A failed validation returns an error wrapping
// *trigger.ValidationError without contacting the store. On store failure
// the draft returns to StateDraft and the active set is unchanged. On
// success the draft holds the stored record in StatePersisted.
func (s *Session) Commit(ctx context.Context, actor trigger.Actor, d *Draft) (trigger.Trigger, error) {
	if d.state == StateDeleted {
		return trigger.Trigger{}, errors.New(ErrDeleted).Component(component).Category(errors.CategoryConflict).Build()
	}

	report := d.Validate()
	if !report.OK() {
		s.stats.ObserveLifecycle(opCommit, metrics.OutcomeInvalid)
		s.log.Debug("commit rejected by validation",
			logger.String("trigger_id", d.record.ID),
			logger.String("draft", d.key))
		return trigger.Trigger{}, validationError(report)
	}

	key := d.key
	if !d.IsNew() {
		key = d.record.ID
	}
	release, err := s.acquire(opCommit, key)
	if err != nil {
		return trigger.Trigger{}, err
	}
	defer release()

	d.state = StateValidated
	outgoing := d.record.Normalized()

	start := time.Now()
	var stored trigger.Trigger
	if outgoing.IsNew() {
		stored, err = s.store.CreateTrigger(ctx, actor, outgoing)
	} else {
		stored, err = s.store.UpdateTrigger(ctx, actor, outgoing)
	}
	s.stats.ObserveStoreCall(opCommit, time.Since(start))
	if err == nil && stored.ID == "" {
		err = errors.Newf("store acknowledged %s without an id", outgoing.Name).
			Category(errors.CategoryTransport).Build()
	}
	if err != nil {
		d.state = StateDraft
		s.stats.ObserveLifecycle(opCommit, metrics.OutcomeFailed)
		s.log.Error("failed to commit trigger",
			logger.String("trigger_id", outgoing.ID),
			logger.String("trigger_name", outgoing.Name),
			logger.String("actor", actor.Name),
			logger.Error(err))
		return trigger.Trigger{}, storeError(opCommit, &outgoing, err)
	}

	if stored.HostID == "" {
		stored.HostID = outgoing.HostID
	}
	s.upsert(stored)

	d.record = stored.ForEditing()
	d.state = StatePersisted

	s.stats.ObserveLifecycle(opCommit, metrics.OutcomeSuccess)
	s.log.Info("trigger committed",
		logger.String("trigger_id", stored.ID),
		logger.String("trigger_name", stored.Name),
		logger.Bool("created", outgoing.IsNew()),
		logger.String("actor", actor.Name))
	return stored.Clone(), nil
}

// ToggleEnabled flips the enabled flag of an active trigger through an
// update request. Chains and compiled expressions are sent unchanged. On
// failure the active record keeps its previous flag.
func (s *Session) ToggleEnabled(ctx context.Context, actor trigger.Actor, id string) (trigger.Trigger, error) {
	current, ok := s.Get(id)
	if !ok {
		s.stats.ObserveLifecycle(opToggle, metrics.OutcomeNotFound)
		return trigger.Trigger{}, notFoundError(opToggle, id)
	}

	release, err := s.acquire(opToggle, id)
	if err != nil {
		return trigger.Trigger{}, err
	}
	defer release()

	outgoing := current.Clone()
	outgoing.Enabled = !current.Enabled

	start := time.Now()
	stored, err := s.store.UpdateTrigger(ctx, actor, outgoing)
	s.stats.ObserveStoreCall(opToggle, time.Since(start))
	if err != nil {
		s.stats.ObserveLifecycle(opToggle, metrics.OutcomeFailed)
		s.log.Error("failed to toggle trigger",
			logger.String("trigger_id", id),
			logger.String("trigger_name", current.Name),
			logger.String("actor", actor.Name),
			logger.Error(err))
		return trigger.Trigger{}, storeError(opToggle, &current, err)
	}
	if stored.ID == "" {
		stored = outgoing
	}
	if stored.HostID == "" {
		stored.HostID = current.HostID
	}
	s.upsert(stored)

	s.stats.ObserveLifecycle(opToggle, metrics.OutcomeSuccess)
	s.log.Info("trigger toggled",
		logger.String("trigger_id", id),
		logger.Bool("enabled", stored.Enabled),
		logger.String("actor", actor.Name))
	return stored.Clone(), nil
}

// Delete removes an active trigger from the store. The record leaves the
// active set only after the store acknowledges the delete.
func (s *Session) Delete(ctx context.Context, actor trigger.Actor, id string) error {
	current, ok := s.Get(id)
	if !ok {
		s.stats.ObserveLifecycle(opDelete, metrics.OutcomeNotFound)
		return notFoundError(opDelete, id)
	}

	release, err := s.acquire(opDelete, id)
	if err != nil {
		return err
	}
	defer release()

	start := time.Now()
	err = s.store.DeleteTrigger(ctx, actor, current)
	s.stats.ObserveStoreCall(opDelete, time.Since(start))
	if err != nil {
		s.stats.ObserveLifecycle(opDelete, metrics.OutcomeFailed)
		s.log.Error("failed to delete trigger",
			logger.String("trigger_id", id),
			logger.String("trigger_name", current.Name),
			logger.String("actor", actor.Name),
			logger.Error(err))
		return storeError(opDelete, &current, err)
	}

	s.mu.Lock()
	if idx := s.indexLocked(id); idx >= 0 {
		s.triggers = slices.Delete(s.triggers, idx, idx+1)
		s.regroupLocked()
	}
	s.mu.Unlock()

	s.stats.ObserveLifecycle(opDelete, metrics.OutcomeSuccess)
	s.log.Info("trigger deleted",
		logger.String("trigger_id", id),
		logger.String("trigger_name", current.Name),
		logger.String("actor", actor.Name))
	return nil
}

// DeleteDraft deletes the persisted record behind d and marks d deleted.
func (s *Session) DeleteDraft(ctx context.Context, actor trigger.Actor, d *Draft) error {
	if d.IsNew() {
		d.state = StateDeleted
		return nil
	}
	if err := s.Delete(ctx, actor, d.record.ID); err != nil {
		return err
	}
	d.state = StateDeleted
	return nil
}

// Items returns the monitored items of hostID for the clause item picker.
// Lists are cached per host and concurrent lookups for the same host share
// one request. Failures are not cached.
func (s *Session) Items(ctx context.Context, hostID string) ([]trigger.Item, error) {
	if s.items == nil {
		return nil, errors.Newf("no item source configured").
			Component(component).
			Category(errors.CategoryConfig).
			Build()
	}
	if s.itemCache != nil {
		if v, ok := s.itemCache.Get(hostID); ok {
			s.stats.ObserveItemCache(true)
			return slices.Clone(v.([]trigger.Item)), nil
		}
	}
	s.stats.ObserveItemCache(false)

	v, err, _ := s.itemCalls.Do(hostID, func() (any, error) {
		start := time.Now()
		items, err := s.items.ListItems(ctx, hostID)
		s.stats.ObserveStoreCall(opItems, time.Since(start))
		if err != nil {
			return nil, err
		}
		if s.itemCache != nil {
			s.itemCache.SetDefault(hostID, items)
		}
		return items, nil
	})
	if err != nil {
		s.log.Warn("failed to load host items",
			logger.String("host_id", hostID),
			logger.Error(err))
		return nil, errors.New(err).
			Component(component).
			Category(errors.CategoryTransport).
			Context("operation", opItems).
			Context("host_id", hostID).
			Build()
	}
	return slices.Clone(v.([]trigger.Item)), nil
}

// InvalidateItems drops the cached item list of hostID.
func (s *Session) InvalidateItems(hostID string) {
	if s.itemCache != nil {
		s.itemCache.Delete(hostID)
	}
}

// acquire marks key as in flight. The returned release must be called once
// the store round trip is over.
func (s *Session) acquire(op, key string) (func(), error) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, busy := s.inflight[key]; busy {
		s.stats.ObserveLifecycle(op, metrics.OutcomeBusy)
		s.log.Warn("rejected concurrent submission",
			logger.String("operation", op),
			logger.String("key", key))
		return nil, busyError(op, key)
	}
	s.inflight[key] = struct{}{}
	return func() {
		s.inflightMu.Lock()
		delete(s.inflight, key)
		s.inflightMu.Unlock()
	}, nil
}

func (s *Session) upsert(t trigger.Trigger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(t.ID); idx >= 0 {
		if t.Hostname == "" {
			t.Hostname = s.triggers[idx].Hostname
		}
		s.triggers[idx] = t
	} else {
		s.triggers = append(s.triggers, t)
	}
	s.regroupLocked()
}

func (s *Session) indexLocked(id string) int {
	return slices.IndexFunc(s.triggers, func(t trigger.Trigger) bool { return t.ID == id })
}

func (s *Session) regroupLocked() {
	s.groups = trigger.GroupByHost(s.triggers)
	s.stats.SetActiveTriggers(len(s.triggers))
}
