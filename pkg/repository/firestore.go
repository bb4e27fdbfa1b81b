package repository

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/MMzeidan/zeidan-chat/pkg/model"
)

// firestoreStore implements Store using Firestore. Scopes map onto the
// collection path artifacts/{app}/users/{owner}/{kind}, and write-time
// timestamps are assigned server-side via the ServerTimestamp sentinel.
type firestoreStore struct {
	client *firestore.Client
	appID  string
}

// NewFirestore creates a Firestore-backed Store.
func NewFirestore(ctx context.Context, projectID, databaseID, appID string) (Store, error) {
	if projectID == "" {
		return nil, goerr.New("project ID is required")
	}
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}
	if appID == "" {
		return nil, goerr.New("app ID is required")
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client")
	}

	return &firestoreStore{
		client: client,
		appID:  appID,
	}, nil
}

func (s *firestoreStore) collection(scope Scope) *firestore.CollectionRef {
	path := fmt.Sprintf("artifacts/%s/users/%s/%s", s.appID, scope.Owner, scope.Kind)
	return s.client.Collection(path)
}

type firestoreSubscription struct {
	cancel   context.CancelFunc
	stopOnce sync.Once
}

func (s *firestoreSubscription) Stop() {
	s.stopOnce.Do(s.cancel)
}

func (s *firestoreStore) Subscribe(ctx context.Context, scope Scope, opts SubscribeOptions, onSnapshot func(Snapshot), onError func(error)) (Subscription, error) {
	if scope.Owner == "" {
		return nil, goerr.New("scope owner is empty", goerr.V("kind", scope.Kind))
	}
	if onSnapshot == nil {
		return nil, goerr.New("onSnapshot is required")
	}
	if onError == nil {
		onError = func(error) {}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultCapacity
	}

	sctx, cancel := context.WithCancel(ctx)
	query := s.collection(scope).
		OrderBy(model.FieldTimestamp, firestore.Desc).
		Limit(limit)
	it := query.Snapshots(sctx)

	go func() {
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if status.Code(err) == codes.Canceled {
					return
				}
				// No automatic retry: the error is surfaced once and the
				// listener terminates, leaving the replica stale.
				onError(mapStoreError(err))
				return
			}

			snap := make(Snapshot, 0, qs.Size)
			docs := qs.Documents
			for {
				doc, err := docs.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					onError(mapStoreError(err))
					return
				}
				snap = append(snap, Document{ID: doc.Ref.ID, Fields: doc.Data()})
			}

			onSnapshot(snap)
		}
	}()

	return &firestoreSubscription{cancel: cancel}, nil
}

func (s *firestoreStore) Insert(ctx context.Context, scope Scope, fields map[string]any) (string, error) {
	if scope.Owner == "" {
		return "", goerr.Wrap(ErrIdentityNotReady, "insert without scope owner")
	}

	data := cloneFields(fields)
	data[model.FieldTimestamp] = firestore.ServerTimestamp

	ref, _, err := s.collection(scope).Add(ctx, data)
	if err != nil {
		return "", mapStoreError(err)
	}
	return ref.ID, nil
}

func (s *firestoreStore) Patch(ctx context.Context, scope Scope, id string, fields map[string]any) error {
	data := cloneFields(fields)
	data[model.FieldTimestamp] = firestore.ServerTimestamp

	// MergeAll keeps last-write-wins semantics per record.
	if _, err := s.collection(scope).Doc(id).Set(ctx, data, firestore.MergeAll); err != nil {
		return mapStoreError(err)
	}
	return nil
}

func (s *firestoreStore) Remove(ctx context.Context, scope Scope, id string) error {
	if _, err := s.collection(scope).Doc(id).Delete(ctx); err != nil {
		return mapStoreError(err)
	}
	return nil
}

func (s *firestoreStore) Close() error {
	return s.client.Close()
}

// mapStoreError translates gRPC status codes into the store error taxonomy.
func mapStoreError(err error) error {
	switch status.Code(err) {
	case codes.PermissionDenied:
		return goerr.Wrap(ErrPermissionDenied, "store rejected the operation", goerr.V("cause", err.Error()))
	case codes.NotFound:
		return goerr.Wrap(ErrNotFound, "store has no such record", goerr.V("cause", err.Error()))
	case codes.Unavailable, codes.DeadlineExceeded:
		return goerr.Wrap(ErrStoreUnavailable, "store is unreachable", goerr.V("cause", err.Error()))
	default:
		return goerr.Wrap(err, "store operation failed")
	}
}
