package repository

import (
	"context"
	"log/slog"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/MMzeidan/zeidan-chat/pkg/model"
	"github.com/MMzeidan/zeidan-chat/pkg/utils/logging"
)

// DefaultCapacity is the replica size used when Options.Capacity is zero.
const DefaultCapacity = 50

type Options struct {
	Capacity int
}

// IdentitySource provides the identity that owns a replica's scope.
// Implemented by identity.Provider.
type IdentitySource interface {
	Ready() <-chan struct{}
	Identity() model.Identity
	OnChange(func(model.Identity))
}

// Replica is a local, ordered, size-bounded mirror of one remote scope.
// Items are kept most-recent-first by the store's write-time timestamp and
// replaced wholesale on every snapshot notification. A subscription failure
// leaves the last known items in place (stale but available); mutation
// failures are surfaced synchronously and change nothing locally.
type Replica[T any] struct {
	store    Store
	src      IdentitySource
	kind     string
	capacity int
	decode   Decoder[T]
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	items   []T
	lastErr error
	synced  bool
	sub     Subscription
	closed  bool

	updates   chan struct{}
	first     chan struct{}
	firstOnce sync.Once
}

// Open creates a replica for the given scope kind. Subscribing is deferred
// until the identity source is ready, and the replica re-subscribes when the
// scope-defining identity changes.
func Open[T any](ctx context.Context, store Store, src IdentitySource, kind string, opts Options, decode Decoder[T]) (*Replica[T], error) {
	if store == nil {
		return nil, goerr.New("store is required")
	}
	if src == nil {
		return nil, goerr.New("identity source is required")
	}
	if kind == "" {
		return nil, goerr.New("scope kind is required")
	}
	if decode == nil {
		return nil, goerr.New("decoder is required")
	}

	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	rctx, cancel := context.WithCancel(ctx)
	r := &Replica[T]{
		store:    store,
		src:      src,
		kind:     kind,
		capacity: capacity,
		decode:   decode,
		logger:   logging.From(ctx).With("kind", kind),
		ctx:      rctx,
		cancel:   cancel,
		updates:  make(chan struct{}, 1),
		first:    make(chan struct{}),
	}

	src.OnChange(func(model.Identity) {
		r.logger.Info("identity changed, re-subscribing")
		r.subscribe()
	})

	go func() {
		select {
		case <-rctx.Done():
			return
		case <-src.Ready():
		}
		r.subscribe()
	}()

	return r, nil
}

func (r *Replica[T]) subscribe() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	old := r.sub
	r.sub = nil
	scope := Scope{Kind: r.kind, Owner: r.src.Identity()}
	r.mu.Unlock()

	// Stop outside the lock: the store may be delivering a snapshot that is
	// waiting on it.
	if old != nil {
		old.Stop()
	}

	sub, err := r.store.Subscribe(r.ctx, scope, SubscribeOptions{Limit: r.capacity}, r.apply, r.fail)
	if err != nil {
		r.fail(err)
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		sub.Stop()
		return
	}
	r.sub = sub
	r.mu.Unlock()
}

// apply replaces the local view with the reduced snapshot. Deliveries after
// Close are discarded.
func (r *Replica[T]) apply(snap Snapshot) {
	items, skipped := Reduce(snap, r.capacity, r.decode)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.items = items
	r.lastErr = nil
	r.synced = true
	r.mu.Unlock()

	if skipped > 0 {
		r.logger.Warn("skipped undecodable documents in snapshot", "skipped", skipped)
	}

	r.firstOnce.Do(func() { close(r.first) })
	r.notify()
}

// fail records a subscription error. The last known items stay available.
func (r *Replica[T]) fail(err error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.lastErr = err
	r.mu.Unlock()

	r.logger.Warn("replica subscription error, keeping last known items", "error", err)

	r.firstOnce.Do(func() { close(r.first) })
	r.notify()
}

func (r *Replica[T]) notify() {
	select {
	case r.updates <- struct{}{}:
	default:
	}
}

// Items returns the current view, most recent first. The returned slice is a
// copy and safe to hold across snapshot deliveries.
func (r *Replica[T]) Items() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]T, len(r.items))
	copy(items, r.items)
	return items
}

// Err returns the most recent subscription error, or nil if the last
// notification was a snapshot.
func (r *Replica[T]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Updates signals after every applied snapshot or subscription error.
// Notifications are coalesced; consumers re-read Items.
func (r *Replica[T]) Updates() <-chan struct{} {
	return r.updates
}

// Wait blocks until the first snapshot has been applied. If the subscription
// failed before any snapshot arrived, Wait returns that error.
func (r *Replica[T]) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "waiting for replica")
	case <-r.ctx.Done():
		return goerr.Wrap(ErrReplicaClosed, "replica closed while waiting")
	case <-r.first:
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.synced {
		return goerr.Wrap(r.lastErr, "replica never received a snapshot")
	}
	return nil
}

func (r *Replica[T]) scope() (Scope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return Scope{}, goerr.Wrap(ErrReplicaClosed, "mutation on closed replica", goerr.V("kind", r.kind))
	}
	owner := r.src.Identity()
	if owner == "" {
		return Scope{}, goerr.Wrap(ErrIdentityNotReady, "mutation before identity", goerr.V("kind", r.kind))
	}
	return Scope{Kind: r.kind, Owner: owner}, nil
}

// Create inserts a record. The store assigns the write-time timestamp; the
// replica reflects the record only once the next snapshot arrives.
func (r *Replica[T]) Create(ctx context.Context, fields map[string]any) (string, error) {
	scope, err := r.scope()
	if err != nil {
		return "", err
	}
	return r.store.Insert(ctx, scope, fields)
}

// Update patches a record and touches its write-time timestamp at the store.
func (r *Replica[T]) Update(ctx context.Context, id string, fields map[string]any) error {
	scope, err := r.scope()
	if err != nil {
		return err
	}
	return r.store.Patch(ctx, scope, id, fields)
}

// Delete removes a record.
func (r *Replica[T]) Delete(ctx context.Context, id string) error {
	scope, err := r.scope()
	if err != nil {
		return err
	}
	return r.store.Remove(ctx, scope, id)
}

// Close releases the subscription. After Close every operation returns
// ErrReplicaClosed; closing twice is a no-op.
func (r *Replica[T]) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	sub := r.sub
	r.sub = nil
	r.mu.Unlock()

	if sub != nil {
		sub.Stop()
	}
	r.cancel()
	return nil
}
