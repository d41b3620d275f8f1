package tiercache

import (
	"context"
	"github.com/MoonWalka/app-booking-2-sub010/config"
	"github.com/MoonWalka/app-booking-2-sub010/internal/persistence"
	"github.com/MoonWalka/app-booking-2-sub010/internal/stabilizer"
	"github.com/MoonWalka/app-booking-2-sub010/internal/testhelp"
	"github.com/MoonWalka/app-booking-2-sub010/model"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig(t *testing.T, sessionID string) *config.Cache {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.SessionID = sessionID
	cfg.Session = config.TierCfg{Backend: config.BackendFile, Dir: filepath.Join(dir, "session")}
	cfg.Local = config.TierCfg{Backend: config.BackendSQLite, Path: filepath.Join(dir, "local.db")}
	return cfg
}

// TestNew_EveryStrategy serves reads and writes through every strategy.
func TestNew_EveryStrategy(t *testing.T) {
	svc, err := New(context.Background(), testConfig(t, ""), testhelp.Logger(), nil)
	require.NoError(t, err)
	defer svc.Close()
	require.NotEmpty(t, svc.SessionID())

	p := svc.Persistence()
	for _, strategy := range model.Strategies() {
		key := "contact:" + string(strategy)
		require.True(t, p.Set(key, map[string]any{"name": "Ana"}, strategy, model.TTLShort), strategy)

		v, ok := p.Get(key, strategy)
		require.True(t, ok, strategy)
		require.Equal(t, map[string]any{"name": "Ana"}, v)
	}
	require.Equal(t, int64(len(model.Strategies())), p.Stats().Hits)
}

// TestService_SafeReloadRoundTrip restores memory and the reload budget in the next process of the session.
func TestService_SafeReloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "session-1")

	var reloads atomic.Int64
	recovery := stabilizer.RecoveryFunc(func(context.Context) error {
		reloads.Add(1)
		return nil
	})

	before, err := New(ctx, cfg, testhelp.Logger(), recovery)
	require.NoError(t, err)
	before.Persistence().Set("draft", "contract v2", model.MemoryOnly, model.TTLLong)
	before.Persistence().Namespace("forms").Set("step", 3, model.MemoryOnly, model.NoTTL)

	require.Equal(t, stabilizer.DecisionReloaded, before.Stabilizer().HandleError(stabilizer.ErrNetwork))
	require.Equal(t, int64(1), reloads.Load())
	require.NoError(t, before.Close())

	after, err := New(ctx, cfg, testhelp.Logger(), recovery)
	require.NoError(t, err)
	defer after.Close()

	v, ok := after.Persistence().Get("draft", model.MemoryOnly)
	require.True(t, ok)
	require.Equal(t, "contract v2", v)

	step, ok := persistence.GetAs[int](after.Persistence().Namespace("forms"), "step", model.MemoryOnly)
	require.True(t, ok)
	require.Equal(t, 3, step)

	require.Equal(t, 1, after.Stabilizer().State().ReloadAttempts)
	require.Equal(t, stabilizer.DecisionSuppressed, after.Stabilizer().HandleError(stabilizer.ErrNetwork),
		"the second reload is still within the minimal interval")
}

// TestService_NewSessionResetsBudget starts a new session with a full reload budget.
func TestService_NewSessionResetsBudget(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "session-1")

	before, err := New(ctx, cfg, testhelp.Logger(), nil)
	require.NoError(t, err)
	require.True(t, before.Stabilizer().SafeReload(ctx))
	require.NoError(t, before.Close())

	cfg.SessionID = "session-2"
	after, err := New(ctx, cfg, testhelp.Logger(), nil)
	require.NoError(t, err)
	defer after.Close()
	require.Zero(t, after.Stabilizer().State().ReloadAttempts)
}

// TestService_InternalKeysAreNotWritable refuses caller access to the reload state and snapshot records.
func TestService_InternalKeysAreNotWritable(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "session-1")

	before, err := New(ctx, cfg, testhelp.Logger(), nil)
	require.NoError(t, err)
	require.True(t, before.Stabilizer().SafeReload(ctx))

	p := before.Persistence()
	for _, key := range []string{cfg.Stabilizer.StateKey, cfg.Snapshot.Key} {
		require.False(t, p.Set(key, map[string]any{"reload_attempts": 0}, model.SessionOnly, model.NoTTL), key)
		require.False(t, p.Remove(key, model.SessionOnly), key)
		_, ok := p.Get(key, model.SessionOnly)
		require.False(t, ok, key)
	}
	require.NoError(t, before.Close())

	after, err := New(ctx, cfg, testhelp.Logger(), nil)
	require.NoError(t, err)
	defer after.Close()
	require.Equal(t, 1, after.Stabilizer().State().ReloadAttempts)
}

// TestService_LocalTierOutlivesSession keeps long-lived records across sessions.
func TestService_LocalTierOutlivesSession(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "session-1")

	before, err := New(ctx, cfg, testhelp.Logger(), nil)
	require.NoError(t, err)
	require.True(t, before.Persistence().Set("theme", "dark", model.LocalOnly, model.NoTTL))
	require.True(t, before.Persistence().Set("tab", "invoices", model.SessionOnly, model.NoTTL))
	require.NoError(t, before.Close())

	cfg.SessionID = "session-2"
	cfg.Session.Dir = filepath.Join(t.TempDir(), "session-2")
	after, err := New(ctx, cfg, testhelp.Logger(), nil)
	require.NoError(t, err)
	defer after.Close()

	v, ok := after.Persistence().Get("theme", model.LocalOnly)
	require.True(t, ok)
	require.Equal(t, "dark", v)

	_, ok = after.Persistence().Get("tab", model.SessionOnly)
	require.False(t, ok)
}

// TestService_CloseRemovesEphemeralTier wipes the session directory on normal shutdown.
func TestService_CloseRemovesEphemeralTier(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Session.Ephemeral = true

	svc, err := New(context.Background(), cfg, testhelp.Logger(), nil)
	require.NoError(t, err)
	require.True(t, svc.Persistence().Set("k", "v", model.SessionOnly, model.NoTTL))
	_, err = os.Stat(cfg.Session.Dir)
	require.NoError(t, err)

	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close())
	_, err = os.Stat(cfg.Session.Dir)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestService_CloseRunsFinalCleanup purges expired memory entries on shutdown.
func TestService_CloseRunsFinalCleanup(t *testing.T) {
	svc, err := New(context.Background(), testConfig(t, ""), testhelp.Logger(), nil)
	require.NoError(t, err)

	p := svc.Persistence()
	p.Set("short", 1, model.MemoryOnly, time.Millisecond)
	p.Set("forever", 2, model.MemoryOnly, model.NoTTL)
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, svc.Close())
	require.Equal(t, 1, p.Stats().MemorySize)
}

// TestNew_InvalidConfig rejects unknown backends.
func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Local.Backend = "cookies"

	_, err := New(context.Background(), cfg, testhelp.Logger(), nil)
	require.Error(t, err)
}

// TestNew_MemoryBackends runs without touching the filesystem.
func TestNew_MemoryBackends(t *testing.T) {
	cfg := config.Default()
	cfg.Session.Backend = config.BackendMemory
	cfg.Local.Backend = config.BackendMemory

	svc, err := New(context.Background(), cfg, testhelp.Logger(), nil)
	require.NoError(t, err)
	defer svc.Close()

	require.True(t, svc.Persistence().Set("k", "v", model.TTL, model.TTLShort))
	_, ok := svc.Persistence().Get("k", model.LocalOnly)
	require.True(t, ok)
}
