package auth

import "context"

// Provider port (Authentication Provider). Sign-in flows live outside the core.
type Provider interface {
	// CurrentUser reports the signed-in user, or false when nobody is signed in.
	CurrentUser(ctx context.Context) (*User, bool)
	SignOut(ctx context.Context) error
}
