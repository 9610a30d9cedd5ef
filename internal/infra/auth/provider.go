// Package auth provides Authentication Providers for analysis sessions.
package auth

import (
	"context"
	"sync"

	domain "github.com/bryanwahyu/metaselect/internal/domain/auth"
)

// SessionProvider holds the user a session was opened for until SignOut.
type SessionProvider struct {
	mu   sync.RWMutex
	user *domain.User
}

// NewSessionProvider signs u in. A nil u yields a provider with nobody signed in.
func NewSessionProvider(u *domain.User) *SessionProvider {
	p := &SessionProvider{}
	if u != nil {
		cp := *u
		p.user = &cp
	}
	return p
}

func (p *SessionProvider) CurrentUser(ctx context.Context) (*domain.User, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.user == nil {
		return nil, false
	}
	cp := *p.user
	return &cp, true
}

func (p *SessionProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.user = nil
	p.mu.Unlock()
	return nil
}
