package wallet

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Resolver answers "who, if anyone, is authorized" for one session.
// It is the only writer of the session Identity. Once set, the identity is
// kept for the rest of the session.
type Resolver struct {
	provider Provider

	mu       sync.RWMutex
	identity Identity
}

// NewResolver creates a resolver. A nil provider models an environment with
// no wallet at all.
func NewResolver(provider Provider) *Resolver {
	return &Resolver{provider: provider}
}

// Available reports whether a wallet provider is present.
func (r *Resolver) Available() bool {
	return r.provider != nil
}

// Current returns the session identity, if one has been authorized.
func (r *Resolver) Current() (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.identity, !r.identity.IsZero()
}

// Discover looks for an already-granted account without prompting.
// It never fails: a missing provider, a provider error or a malformed account
// all mean "unauthenticated".
func (r *Resolver) Discover(ctx context.Context) (Identity, bool) {
	if id, ok := r.Current(); ok {
		return id, true
	}

	if r.provider == nil {
		log.Printf("[Wallet] No wallet provider present")
		return "", false
	}

	accounts, err := r.provider.RequestAccounts(ctx, false)
	if err != nil {
		log.Printf("[Wallet] Account discovery failed: %v", err)
		return "", false
	}
	if len(accounts) == 0 {
		log.Printf("[Wallet] No authorized account found")
		return "", false
	}

	id, err := ParseIdentity(accounts[0])
	if err != nil {
		log.Printf("[Wallet] Ignoring authorized account: %v", err)
		return "", false
	}

	id = r.adopt(id)
	log.Printf("[Wallet] Found an authorized account: %s", id)
	return id, true
}

// RequestAuthorization prompts the user through the provider and adopts the
// first granted account. If an identity is already set it is returned as is.
func (r *Resolver) RequestAuthorization(ctx context.Context) (Identity, error) {
	if r.provider == nil {
		return "", ErrProviderUnavailable
	}
	if id, ok := r.Current(); ok {
		return id, nil
	}

	accounts, err := r.provider.RequestAccounts(ctx, true)
	if err != nil {
		return "", err
	}
	if len(accounts) == 0 {
		return "", fmt.Errorf("%w: no account granted", ErrAuthorizationDenied)
	}

	id, err := ParseIdentity(accounts[0])
	if err != nil {
		return "", fmt.Errorf("provider returned an unusable account: %w", err)
	}

	id = r.adopt(id)
	log.Printf("[Wallet] Connected %s", id)
	return id, nil
}

// adopt stores id unless an identity is already set, and returns the
// identity in effect.
func (r *Resolver) adopt(id Identity) Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.identity.IsZero() {
		r.identity = id
	}
	return r.identity
}
