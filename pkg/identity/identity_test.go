package identity_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/MMzeidan/zeidan-chat/pkg/identity"
	"github.com/MMzeidan/zeidan-chat/pkg/model"
)

func TestAcquireLocalFallback(t *testing.T) {
	ctx := context.Background()

	// No API key: the provider behaves as if the identity provider is
	// unavailable and must still resolve an identity.
	p, err := identity.New(ctx, "")
	gt.NoError(t, err)

	id := p.Acquire(ctx)
	gt.V(t, id).NotEqual(model.Identity(""))
	gt.Equal(t, p.Identity(), id)

	select {
	case <-p.Ready():
	default:
		t.Fatal("provider not ready after Acquire")
	}
}

func TestAcquireUniquePerProvider(t *testing.T) {
	ctx := context.Background()

	p1, err := identity.New(ctx, "")
	gt.NoError(t, err)
	p2, err := identity.New(ctx, "")
	gt.NoError(t, err)

	id1 := p1.Acquire(ctx)
	id2 := p2.Acquire(ctx)
	gt.V(t, id1).NotEqual(id2)
}

func TestOnChange(t *testing.T) {
	ctx := context.Background()

	p, err := identity.New(ctx, "")
	gt.NoError(t, err)

	var changes []model.Identity
	p.OnChange(func(id model.Identity) {
		changes = append(changes, id)
	})

	first := p.Acquire(ctx)
	gt.A(t, changes).Length(0) // first acquisition is not a change

	second := p.Acquire(ctx)
	gt.V(t, second).NotEqual(first)
	gt.A(t, changes).Length(1)
	gt.Equal(t, changes[0], second)
}

func TestIdentityBeforeAcquire(t *testing.T) {
	ctx := context.Background()

	p, err := identity.New(ctx, "")
	gt.NoError(t, err)
	gt.Equal(t, p.Identity(), model.Identity(""))

	select {
	case <-p.Ready():
		t.Fatal("provider must not be ready before Acquire")
	default:
	}
}
