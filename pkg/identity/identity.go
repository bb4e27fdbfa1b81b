package identity

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"github.com/MMzeidan/zeidan-chat/pkg/model"
	"github.com/MMzeidan/zeidan-chat/pkg/utils/logging"
)

// Provider establishes the stable per-client identity before any replica
// subscription starts. It tries provider-issued anonymous sign-in and falls
// back to a locally minted identifier on any failure, so the rest of the
// system can run without a working identity provider.
type Provider struct {
	svc *identitytoolkit.Service

	mu        sync.Mutex
	id        model.Identity
	ready     chan struct{}
	readyOnce sync.Once
	hooks     []func(model.Identity)
}

// New creates a Provider. With an empty apiKey the provider is local-only
// and Acquire always mints a random identity.
func New(ctx context.Context, apiKey string) (*Provider, error) {
	p := &Provider{
		ready: make(chan struct{}),
	}

	if apiKey != "" {
		svc, err := identitytoolkit.NewService(ctx,
			option.WithAPIKey(apiKey),
			option.WithoutAuthentication(),
		)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create identity toolkit service")
		}
		p.svc = svc
	}

	return p, nil
}

// Acquire resolves the client identity. Provider failures are logged and
// converted into a local fallback identity; Acquire never fails. The first
// call signals readiness exactly once.
func (p *Provider) Acquire(ctx context.Context) model.Identity {
	logger := logging.From(ctx)

	if p.svc != nil {
		req := &identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{}
		resp, err := p.svc.Relyingparty.SignupNewUser(req).Context(ctx).Do()
		if err != nil {
			logger.Warn("anonymous sign-in failed, using local identity", "error", err)
		} else if resp.LocalId == "" {
			logger.Warn("anonymous sign-in returned no identity, using local identity")
		} else {
			return p.adopt(model.Identity(resp.LocalId))
		}
	}

	return p.adopt(model.NewIdentity())
}

// Identity returns the current identity, or the empty identity before the
// first Acquire completes.
func (p *Provider) Identity() model.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.id
}

// Ready is closed once, when the first identity has been established.
// Dependent components must defer subscribing until then.
func (p *Provider) Ready() <-chan struct{} {
	return p.ready
}

// OnChange registers a hook invoked when an already-established identity is
// replaced by a later Acquire. Replicas use it to re-subscribe their scope.
func (p *Provider) OnChange(fn func(model.Identity)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = append(p.hooks, fn)
}

func (p *Provider) adopt(id model.Identity) model.Identity {
	p.mu.Lock()
	changed := p.id != "" && p.id != id
	p.id = id
	hooks := make([]func(model.Identity), len(p.hooks))
	copy(hooks, p.hooks)
	p.mu.Unlock()

	p.readyOnce.Do(func() { close(p.ready) })

	if changed {
		for _, fn := range hooks {
			fn(id)
		}
	}
	return id
}

// Static is an IdentitySource pinned to a known identity. Used when the
// caller already holds a stable identifier, e.g. an operator addressing a
// specific client's data.
type Static model.Identity

func (s Static) Identity() model.Identity { return model.Identity(s) }

func (s Static) Ready() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (s Static) OnChange(func(model.Identity)) {}
