package model

import "github.com/google/uuid"

// Identity is the stable per-client identifier that scopes all remote
// collections. It is created once at startup and never mutated.
type Identity string

// NewIdentity mints a local random identity, used when the identity provider
// is unavailable.
func NewIdentity() Identity {
	return Identity(uuid.New().String())
}
