package repository

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/MMzeidan/zeidan-chat/pkg/model"
)

var (
	// ErrReplicaClosed is returned by any operation on a closed replica.
	ErrReplicaClosed = goerr.New("replica is closed")
	// ErrIdentityNotReady is returned by mutations issued before the owning
	// identity has been established.
	ErrIdentityNotReady = goerr.New("identity is not established yet")
	// ErrNotFound indicates the target record does not exist in the scope.
	ErrNotFound = goerr.New("record not found")
	// ErrPermissionDenied indicates the store rejected the operation.
	ErrPermissionDenied = goerr.New("permission denied")
	// ErrStoreUnavailable indicates the store could not be reached.
	ErrStoreUnavailable = goerr.New("store is unavailable")
)

// Scope identifies one logical remote collection as an (entity kind, owning
// identity) pair.
type Scope struct {
	Kind  string
	Owner model.Identity
}

// Document is one record of a scope as delivered by a snapshot notification.
type Document struct {
	ID     string
	Fields map[string]any
}

// Snapshot is the full current contents of a scope: every record that exists
// remotely, ordered by the authoritative write-time timestamp descending and
// truncated to the subscription limit. Records older than the cutoff are
// absent, not stale.
type Snapshot []Document

type SubscribeOptions struct {
	// Limit caps the number of records delivered per snapshot.
	Limit int
}

// Subscription is an open snapshot listener. Stop releases it; no further
// callbacks are delivered after Stop returns.
type Subscription interface {
	Stop()
}

// Store is the ordered-collection service that replicas mirror. Snapshots
// for one scope are delivered in the store's commit order. Write-time
// timestamps are assigned by the store on Insert and Patch, never by the
// caller.
type Store interface {
	Subscribe(ctx context.Context, scope Scope, opts SubscribeOptions, onSnapshot func(Snapshot), onError func(error)) (Subscription, error)
	Insert(ctx context.Context, scope Scope, fields map[string]any) (string, error)
	Patch(ctx context.Context, scope Scope, id string, fields map[string]any) error
	Remove(ctx context.Context, scope Scope, id string) error
	Close() error
}
