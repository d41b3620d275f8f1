package tier

import (
	"context"
	"fmt"
	"github.com/stretchr/testify/require"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type opener func(t *testing.T, quotaBytes int64) Store

func backends() map[string]opener {
	return map[string]opener{
		"memory": func(t *testing.T, quotaBytes int64) Store {
			return NewMemory("session", quotaBytes)
		},
		"file": func(t *testing.T, quotaBytes int64) Store {
			s, err := OpenFile("session", filepath.Join(t.TempDir(), "session"), quotaBytes)
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T, quotaBytes int64) Store {
			s, err := OpenSQLite("local", filepath.Join(t.TempDir(), "local.db"), quotaBytes)
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

// TestStore_RoundTrip writes, reads, overwrites and deletes on every backend.
func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			s := open(t, 0)

			_, found, err := s.Read(ctx, "contacts:list")
			require.NoError(t, err)
			require.False(t, found)

			require.NoError(t, s.Write(ctx, "contacts:list", []byte(`["a","b"]`)))
			data, found, err := s.Read(ctx, "contacts:list")
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, []byte(`["a","b"]`), data)

			require.NoError(t, s.Write(ctx, "contacts:list", []byte(`["c"]`)))
			data, _, err = s.Read(ctx, "contacts:list")
			require.NoError(t, err)
			require.Equal(t, []byte(`["c"]`), data)

			require.NoError(t, s.Delete(ctx, "contacts:list"))
			require.NoError(t, s.Delete(ctx, "contacts:list"), "delete must be idempotent")
			_, found, err = s.Read(ctx, "contacts:list")
			require.NoError(t, err)
			require.False(t, found)
		})
	}
}

// TestStore_Quota rejects writes over the quota and accounts overwrites and deletes.
func TestStore_Quota(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			s := open(t, 10)

			require.NoError(t, s.Write(ctx, "a", []byte("123456")))
			require.ErrorIs(t, s.Write(ctx, "b", []byte("123456")), ErrQuotaExceeded)

			// overwriting the same key only counts the difference
			require.NoError(t, s.Write(ctx, "a", []byte("1234567890")))

			require.NoError(t, s.Delete(ctx, "a"))
			require.NoError(t, s.Write(ctx, "b", []byte("123456")))
		})
	}
}

// TestStore_EmptyKey rejects empty keys.
func TestStore_EmptyKey(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			s := open(t, 0)
			require.ErrorIs(t, s.Write(ctx, "", []byte("x")), ErrEmptyKey)
			_, _, err := s.Read(ctx, "")
			require.ErrorIs(t, err, ErrEmptyKey)
			require.ErrorIs(t, s.Delete(ctx, ""), ErrEmptyKey)
		})
	}
}

// TestFile_SurvivesReopen keeps records and quota accounting across instances.
func TestFile_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "session")

	s, err := OpenFile("session", root, 8)
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, "form:draft", []byte("12345")))

	reopened, err := OpenFile("session", root, 8)
	require.NoError(t, err)
	data, found, err := reopened.Read(ctx, "form:draft")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("12345"), data)
	require.ErrorIs(t, reopened.Write(ctx, "other", []byte("12345")), ErrQuotaExceeded)
}

// TestFile_Destroy removes the directory and its records.
func TestFile_Destroy(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "session")

	s, err := OpenFile("session", root, 0)
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, "k", []byte("v")))
	require.NoError(t, s.Destroy())
	require.NoDirExists(t, root)
}

// TestSQLite_SurvivesReopen keeps records across connections.
func TestSQLite_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "local.db")

	s, err := OpenSQLite("local", path, 0)
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, "org:current", []byte(`"org-1"`)))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite("local", path, 0)
	require.NoError(t, err)
	defer reopened.Close()

	data, found, err := reopened.Read(ctx, "org:current")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte(`"org-1"`), data)

	n, err := reopened.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

// TestSQLite_ClosedStore reports ErrNotConfigured after Close.
func TestSQLite_ClosedStore(t *testing.T) {
	s, err := OpenSQLite("local", filepath.Join(t.TempDir(), "local.db"), 0)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, _, err = s.Read(context.Background(), "k")
	require.ErrorIs(t, err, ErrNotConfigured)
}

// TestSQLite_CloseDuringTraffic lets in-flight operations finish and rejects later ones.
func TestSQLite_CloseDuringTraffic(t *testing.T) {
	s, err := OpenSQLite("local", filepath.Join(t.TempDir(), "local.db"), 0)
	require.NoError(t, err)
	ctx := context.Background()

	var (
		wg     sync.WaitGroup
		served atomic.Int64
		errs   = make(chan error, 8)
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i)
			for {
				if err := s.Write(ctx, key, []byte("v")); err != nil {
					errs <- err
					return
				}
				if _, _, err := s.Read(ctx, key); err != nil {
					errs <- err
					return
				}
				served.Add(1)
			}
		}(i)
	}

	require.Eventually(t, func() bool { return served.Load() >= 16 }, 5*time.Second, time.Millisecond)
	require.NoError(t, s.Close())
	wg.Wait()
	close(errs)

	for err := range errs {
		require.ErrorIs(t, err, ErrNotConfigured)
	}
	_, err = s.Len(ctx)
	require.ErrorIs(t, err, ErrNotConfigured)
	require.ErrorIs(t, s.Delete(ctx, "k0"), ErrNotConfigured)
}

// TestMemory_ReadReturnsCopy does not expose internal buffers.
func TestMemory_ReadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("session", 0)
	require.NoError(t, m.Write(ctx, "k", []byte("abc")))

	data, _, _ := m.Read(ctx, "k")
	data[0] = 'z'

	again, _, _ := m.Read(ctx, "k")
	require.Equal(t, []byte("abc"), again)
	require.Equal(t, 1, m.Len())
}
