// Package offline buffers user actions that must eventually reach the AgriOne API.
//
// A Service owns the persisted queue and the connectivity subscription. UI
// surfaces share one Service and call Enqueue, SyncAll, RemoveFromQueue and
// ClearQueue on it. Actions survive restarts through a store.Store slot and are
// delivered in FIFO order, at most one sync pass at a time.
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agrione/offline-sync/pkg/connectivity"
	"github.com/agrione/offline-sync/pkg/notice"
	"github.com/agrione/offline-sync/pkg/queue"
	"github.com/agrione/offline-sync/pkg/schedule"
	"github.com/agrione/offline-sync/pkg/store"
	"github.com/agrione/offline-sync/pkg/worker"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultSlotKey is the storage slot holding the serialized queue
const DefaultSlotKey = "agrione-sync-queue"

// Options configures a Service
type Options struct {
	Store        store.Store
	SlotKey      string
	Runner       *worker.Runner
	Connectivity connectivity.Source
	Notifier     notice.Notifier
	// Lock, when set, guards passes across processes sharing the slot
	Lock        schedule.LockProvider
	LockTimeout time.Duration
	// SyncOnEnqueue starts a background pass when an action is enqueued while online
	SyncOnEnqueue bool
	Logger        *zerolog.Logger
	Now           func() time.Time
}

// Summary reports one SyncAll call
type Summary struct {
	Ran      bool     `json:"ran"`
	Synced   int      `json:"synced"`
	Pending  int      `json:"pending"`
	Dropped  int      `json:"dropped"`
	Skipped  string   `json:"skipped,omitempty"`
	Failures []string `json:"failures,omitempty"`
}

// Status is the data behind a sync status badge
type Status struct {
	Online  bool `json:"online"`
	Syncing bool `json:"syncing"`
	Pending int  `json:"pending"`
}

// Service is the offline action queue
type Service struct {
	opts   Options
	logger zerolog.Logger

	mu       sync.Mutex
	actions  []queue.QueuedAction
	online   bool
	version  uint64
	disposed bool

	// persistMu orders slot writes; persisted is the version last written
	persistMu sync.Mutex
	persisted uint64

	syncing     atomic.Bool
	unsubscribe func()
	background  sync.WaitGroup
	baseCtx     context.Context
	cancel      context.CancelFunc
}

// New creates a Service. Call Init before use and Dispose when done.
func New(opts Options) *Service {
	if opts.Store == nil {
		opts.Store = store.NewMemoryStore()
	}
	if opts.SlotKey == "" {
		opts.SlotKey = DefaultSlotKey
	}
	if opts.Runner == nil {
		opts.Runner = worker.NewRunner(queue.NewRegistry(), nil)
	}
	if opts.Connectivity == nil {
		opts.Connectivity = connectivity.NewManual(true)
	}
	if opts.Notifier == nil {
		opts.Notifier = notice.NewLogNotifier()
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 10 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Service{
		opts:   opts,
		logger: logger.With().Str("component", "offline-queue").Str("slot", opts.SlotKey).Logger(),
	}
}

// Init restores the persisted queue and subscribes to connectivity transitions.
// A storage read failure is logged and the queue starts empty.
func (s *Service) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return errors.New("offline: service already initialized")
	}
	s.baseCtx, s.cancel = context.WithCancel(s.logger.WithContext(context.WithoutCancel(ctx)))
	s.online = s.opts.Connectivity.Online()
	s.mu.Unlock()

	actions, err := s.load(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error loading sync queue")
	}
	s.mu.Lock()
	s.actions = actions
	s.mu.Unlock()

	s.unsubscribe = s.opts.Connectivity.Subscribe(s.onConnectivity)

	s.logger.Info().Int("pending", len(actions)).Bool("online", s.opts.Connectivity.Online()).Msg("Offline queue initialized")
	return nil
}

// Dispose unsubscribes from connectivity and waits for background passes
func (s *Service) Dispose() {
	s.mu.Lock()
	s.disposed = true
	s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.background.Wait()
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
}

// Enqueue stores a typed action and returns its id. It never fails.
func (s *Service) Enqueue(ctx context.Context, action queue.Action) string {
	qa, err := queue.FromAction(action, s.opts.Now())
	if err != nil {
		s.logger.Error().Err(err).Str("action_type", action.ActionType()).Msg("Error encoding action payload")
		qa = queue.NewQueuedAction(action.ActionType(), nil, s.opts.Now())
	}
	return s.add(ctx, qa)
}

// EnqueueRaw stores an action given as type tag and JSON payload.
// A payload that is not valid JSON is kept as a JSON string.
func (s *Service) EnqueueRaw(ctx context.Context, actionType string, payload json.RawMessage) string {
	if len(payload) > 0 && !json.Valid(payload) {
		s.logger.Warn().Str("action_type", actionType).Msg("Payload is not valid JSON, storing it as a string")
	}
	return s.add(ctx, queue.NewQueuedAction(actionType, payload, s.opts.Now()))
}

func (s *Service) add(ctx context.Context, qa queue.QueuedAction) string {
	s.mu.Lock()
	for s.indexOf(qa.ID) >= 0 {
		qa.ID = queue.NewID()
	}
	s.actions = append(s.actions, qa)
	s.version++
	online := s.online
	s.mu.Unlock()

	s.persist(ctx)
	s.logger.Debug().Str("action_id", qa.ID).Str("action_type", qa.Type).Bool("online", online).Msg("Action enqueued")

	if !online {
		s.opts.Notifier.Notify(ctx, notice.Queued())
	} else if s.opts.SyncOnEnqueue {
		s.syncInBackground()
	}
	return qa.ID
}

// SyncAll runs one pass over the queue. It is a no-op while offline, when the
// queue is empty, or while another pass is running.
func (s *Service) SyncAll(ctx context.Context) Summary {
	s.mu.Lock()
	online, pending := s.online, len(s.actions)
	s.mu.Unlock()

	switch {
	case !online:
		return Summary{Skipped: "offline"}
	case pending == 0:
		return Summary{Skipped: "empty"}
	}

	if !s.syncing.CompareAndSwap(false, true) {
		return Summary{Skipped: "in progress"}
	}
	defer s.syncing.Store(false)

	if s.opts.Lock != nil {
		lockName := "sync:" + s.opts.SlotKey
		acquired, err := s.opts.Lock.GetLock(ctx, lockName, s.opts.LockTimeout)
		if err != nil {
			s.logger.Error().Err(err).Msg("Error acquiring sync lock")
			return Summary{Skipped: "lock error"}
		}
		if !acquired {
			return Summary{Skipped: "locked"}
		}
		defer func() {
			if err := s.opts.Lock.ReleaseLock(context.WithoutCancel(ctx), lockName); err != nil {
				s.logger.Error().Err(err).Msg("Error releasing sync lock")
			}
		}()
	}

	s.mu.Lock()
	batch := s.snapshotLocked()
	s.mu.Unlock()
	if len(batch) == 0 {
		return Summary{Skipped: "empty"}
	}

	s.logger.Info().Int("actions", len(batch)).Msg("Sync pass started")
	res := s.opts.Runner.Run(s.logger.WithContext(ctx), batch)

	s.mu.Lock()
	s.actions = merge(s.actions, batch, res)
	s.version++
	remaining := len(s.actions)
	s.mu.Unlock()

	s.persist(ctx)

	summary := Summary{
		Ran:     true,
		Synced:  len(res.Synced),
		Pending: remaining,
		Dropped: len(res.Dropped),
	}
	for _, d := range res.Dropped {
		summary.Failures = append(summary.Failures, d.Action.ID+": "+d.Err.Error())
		s.opts.Notifier.Notify(ctx, notice.Dropped(d.Action.Type, d.Action.AttemptCount))
	}
	if summary.Synced > 0 {
		s.opts.Notifier.Notify(ctx, notice.Synced(summary.Synced))
	}
	if summary.Pending > 0 {
		s.opts.Notifier.Notify(ctx, notice.Pending(summary.Pending))
	}

	s.logger.Info().
		Int("synced", summary.Synced).
		Int("pending", summary.Pending).
		Int("dropped", summary.Dropped).
		Msg("Sync pass finished")
	return summary
}

// merge folds a pass result into the live queue. Actions removed while the
// pass ran stay removed; actions enqueued meanwhile keep their place.
func merge(live, batch []queue.QueuedAction, res worker.Result) []queue.QueuedAction {
	inBatch := make(map[string]bool, len(batch))
	for _, a := range batch {
		inBatch[a.ID] = true
	}
	updated := make(map[string]queue.QueuedAction, len(res.Retained)+len(res.Untouched))
	for _, a := range res.Retained {
		updated[a.ID] = a
	}
	for _, a := range res.Untouched {
		updated[a.ID] = a
	}

	out := make([]queue.QueuedAction, 0, len(live))
	for _, a := range live {
		if !inBatch[a.ID] {
			out = append(out, a)
			continue
		}
		if u, ok := updated[a.ID]; ok {
			out = append(out, u)
		}
	}
	return out
}

// RemoveFromQueue drops an action by id. Unknown ids are ignored.
func (s *Service) RemoveFromQueue(ctx context.Context, id string) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.actions = append(s.actions[:i:i], s.actions[i+1:]...)
	s.version++
	s.mu.Unlock()

	s.persist(ctx)
}

// ClearQueue empties the queue unconditionally
func (s *Service) ClearQueue(ctx context.Context) {
	s.mu.Lock()
	s.actions = nil
	s.version++
	s.mu.Unlock()

	s.persist(ctx)
}

// Actions returns a copy of the queue in order
func (s *Service) Actions() []queue.QueuedAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Status reports connectivity, pass activity and queue length
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Online:  s.online,
		Syncing: s.syncing.Load(),
		Pending: len(s.actions),
	}
}

func (s *Service) onConnectivity(online bool) {
	s.mu.Lock()
	was := s.online
	s.online = online
	ctx := s.baseCtx
	s.mu.Unlock()

	if was == online {
		return
	}
	s.logger.Info().Bool("online", online).Msg("Connectivity transition")
	if online {
		s.opts.Notifier.Notify(ctx, notice.Online())
		s.syncInBackground()
		return
	}
	s.opts.Notifier.Notify(ctx, notice.Offline())
}

// syncInBackground starts a pass unless the service is disposed. Add runs
// under mu so it never races with Dispose's Wait.
func (s *Service) syncInBackground() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	ctx := s.baseCtx
	s.background.Add(1)
	s.mu.Unlock()
	if ctx == nil {
		ctx = s.logger.WithContext(context.Background())
	}

	go func() {
		defer s.background.Done()
		s.SyncAll(ctx)
	}()
}

func (s *Service) load(ctx context.Context) ([]queue.QueuedAction, error) {
	data, err := s.opts.Store.Get(ctx, s.opts.SlotKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return queue.DecodeAll(data)
}

// persist writes the current queue. Writes are serialized and each one takes
// its snapshot after acquiring persistMu, so an older state never lands after a
// newer one. Failures are logged: the in-memory queue stays authoritative.
func (s *Service) persist(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	version := s.version
	actions := s.snapshotLocked()
	s.mu.Unlock()
	if version == s.persisted {
		return
	}

	data, err := queue.Encode(actions)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error encoding sync queue")
		return
	}
	if err := s.opts.Store.Put(context.WithoutCancel(ctx), s.opts.SlotKey, data); err != nil {
		s.logger.Error().Err(err).Msg("Error saving sync queue")
		return
	}
	s.persisted = version
}

func (s *Service) indexOf(id string) int {
	for i, a := range s.actions {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) snapshotLocked() []queue.QueuedAction {
	return append([]queue.QueuedAction(nil), s.actions...)
}
