package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/MMzeidan/zeidan-chat/pkg/model"
)

// Memory is an in-process Store used by tests and the local demo mode. It
// reproduces the remote store's contract: store-assigned write timestamps
// that are strictly increasing in commit order, full snapshots delivered in
// that order, and truncation to the subscription limit.
type Memory struct {
	mu     sync.Mutex
	base   time.Time
	seq    int64
	scopes map[Scope]*memoryScope
}

type memoryScope struct {
	docs    map[string]map[string]any
	subs    map[int64]*memorySubscription
	nextSub int64
}

type memorySubscription struct {
	limit      int
	onSnapshot func(Snapshot)
	stop       func()
	stopOnce   sync.Once
}

func (s *memorySubscription) Stop() {
	s.stopOnce.Do(s.stop)
}

func NewMemory() *Memory {
	return &Memory{
		base:   time.Now().UTC(),
		scopes: make(map[Scope]*memoryScope),
	}
}

func (m *Memory) scopeLocked(scope Scope) *memoryScope {
	sc, ok := m.scopes[scope]
	if !ok {
		sc = &memoryScope{
			docs: make(map[string]map[string]any),
			subs: make(map[int64]*memorySubscription),
		}
		m.scopes[scope] = sc
	}
	return sc
}

// tickLocked assigns the next commit timestamp. Strictly increasing so the
// snapshot order is total.
func (m *Memory) tickLocked() time.Time {
	m.seq++
	return m.base.Add(time.Duration(m.seq) * time.Millisecond)
}

func (m *Memory) Subscribe(ctx context.Context, scope Scope, opts SubscribeOptions, onSnapshot func(Snapshot), onError func(error)) (Subscription, error) {
	if scope.Owner == "" {
		return nil, goerr.New("scope owner is empty", goerr.V("kind", scope.Kind))
	}
	if onSnapshot == nil {
		return nil, goerr.New("onSnapshot is required")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultCapacity
	}

	m.mu.Lock()
	sc := m.scopeLocked(scope)
	id := sc.nextSub
	sc.nextSub++

	sub := &memorySubscription{
		limit:      limit,
		onSnapshot: onSnapshot,
		stop: func() {
			m.mu.Lock()
			delete(sc.subs, id)
			m.mu.Unlock()
		},
	}
	sc.subs[id] = sub
	initial := snapshotLocked(sc, limit)
	m.mu.Unlock()

	// Initial state is delivered like any other snapshot.
	onSnapshot(initial)

	return sub, nil
}

func (m *Memory) Insert(ctx context.Context, scope Scope, fields map[string]any) (string, error) {
	if scope.Owner == "" {
		return "", goerr.Wrap(ErrIdentityNotReady, "insert without scope owner")
	}

	m.mu.Lock()
	sc := m.scopeLocked(scope)
	id := uuid.New().String()
	doc := cloneFields(fields)
	doc[model.FieldTimestamp] = m.tickLocked()
	sc.docs[id] = doc
	broadcastLocked(sc)
	m.mu.Unlock()

	return id, nil
}

func (m *Memory) Patch(ctx context.Context, scope Scope, id string, fields map[string]any) error {
	m.mu.Lock()
	sc := m.scopeLocked(scope)
	doc, ok := sc.docs[id]
	if !ok {
		m.mu.Unlock()
		return goerr.Wrap(ErrNotFound, "patch target does not exist", goerr.V("id", id))
	}
	for key, value := range cloneFields(fields) {
		doc[key] = value
	}
	doc[model.FieldTimestamp] = m.tickLocked()
	broadcastLocked(sc)
	m.mu.Unlock()

	return nil
}

func (m *Memory) Remove(ctx context.Context, scope Scope, id string) error {
	m.mu.Lock()
	sc := m.scopeLocked(scope)
	if _, ok := sc.docs[id]; !ok {
		m.mu.Unlock()
		return goerr.Wrap(ErrNotFound, "remove target does not exist", goerr.V("id", id))
	}
	delete(sc.docs, id)
	broadcastLocked(sc)
	m.mu.Unlock()

	return nil
}

func (m *Memory) Close() error {
	return nil
}

// broadcastLocked fans the current state out to every subscription while the
// store lock is held, so concurrent commits deliver in commit order.
// Snapshot callbacks must not call back into the store.
func broadcastLocked(sc *memoryScope) {
	for _, sub := range sc.subs {
		sub.onSnapshot(snapshotLocked(sc, sub.limit))
	}
}

func snapshotLocked(sc *memoryScope, limit int) Snapshot {
	snap := make(Snapshot, 0, len(sc.docs))
	for id, fields := range sc.docs {
		snap = append(snap, Document{ID: id, Fields: cloneFields(fields)})
	}
	sort.Slice(snap, func(i, j int) bool {
		ti, _ := snap[i].Fields[model.FieldTimestamp].(time.Time)
		tj, _ := snap[j].Fields[model.FieldTimestamp].(time.Time)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return snap[i].ID > snap[j].ID
	})
	if len(snap) > limit {
		snap = snap[:limit]
	}
	return snap
}

func cloneFields(fields map[string]any) map[string]any {
	clone := make(map[string]any, len(fields))
	for key, value := range fields {
		clone[key] = value
	}
	return clone
}
