package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/metaselect/internal/domain/auth"
)

func TestSessionProvider(t *testing.T) {
	ctx := context.Background()
	u := &domain.User{ID: "u1", Name: "Rina", Email: "rina@example.com"}
	p := NewSessionProvider(u)

	got, ok := p.CurrentUser(ctx)
	require.True(t, ok)
	assert.Equal(t, *u, *got)

	// callers get copies
	got.Name = "changed"
	u.Email = "changed"
	again, _ := p.CurrentUser(ctx)
	assert.Equal(t, "Rina", again.Name)
	assert.Equal(t, "rina@example.com", again.Email)

	require.NoError(t, p.SignOut(ctx))
	_, ok = p.CurrentUser(ctx)
	assert.False(t, ok)
}

func TestAnonymousProvider(t *testing.T) {
	_, ok := NewSessionProvider(nil).CurrentUser(context.Background())
	assert.False(t, ok)
}
