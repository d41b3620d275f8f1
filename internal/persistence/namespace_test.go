package persistence

import (
	"github.com/MoonWalka/app-booking-2-sub010/model"
	"github.com/stretchr/testify/require"
	"testing"
)

// TestNamespace_Isolation keeps equal keys of different namespaces apart.
func TestNamespace_Isolation(t *testing.T) {
	f := newFixture(t)
	a := f.svc.Namespace("a")
	b := f.svc.Namespace("b")

	require.True(t, a.Set("k", 1, model.DefaultStrategy, model.DefaultTTL))
	require.True(t, b.Set("k", 2, model.DefaultStrategy, model.DefaultTTL))

	v, ok := a.Get("k", model.DefaultStrategy)
	require.True(t, ok)
	require.Equal(t, 1, v)

	v, ok = b.Get("k", model.DefaultStrategy)
	require.True(t, ok)
	require.Equal(t, 2, v)

	_, ok = f.svc.Get("k", model.DefaultStrategy)
	require.False(t, ok, "unprefixed key must not exist")
}

// TestNamespace_Remove only removes the namespaced key.
func TestNamespace_Remove(t *testing.T) {
	f := newFixture(t)
	auth := f.svc.Namespace("auth")
	user := f.svc.Namespace("user")

	auth.Set("token", "auth_token_123", model.MemorySession, model.DefaultTTL)
	user.Set("token", "user_token_456", model.MemorySession, model.DefaultTTL)
	require.True(t, auth.Remove("token", model.MemorySession))

	_, ok := auth.Get("token", model.MemorySession)
	require.False(t, ok)
	v, ok := user.Get("token", model.MemorySession)
	require.True(t, ok)
	require.Equal(t, "user_token_456", v)
}

// TestNamespace_Nested prefixes keys with every ancestor.
func TestNamespace_Nested(t *testing.T) {
	f := newFixture(t)
	forms := f.svc.Namespace("forms").Namespace("contract")
	require.Equal(t, "forms:contract", forms.Prefix())

	forms.Set("draft", "x", model.MemoryOnly, model.DefaultTTL)
	v, ok := f.svc.Get("forms:contract:draft", model.MemoryOnly)
	require.True(t, ok)
	require.Equal(t, "x", v)
}

// TestNamespace_SharedStats reports and cleans the whole service.
func TestNamespace_SharedStats(t *testing.T) {
	f := newFixture(t)
	ns := f.svc.Namespace("auth")
	ns.Set("k", 1, model.MemoryOnly, model.DefaultTTL)
	f.svc.Set("other", 2, model.MemoryOnly, model.DefaultTTL)

	require.Equal(t, f.svc.Stats(), ns.Stats())
	require.Equal(t, 2, ns.Stats().MemorySize)
	require.Equal(t, 0, ns.Cleanup())
}
