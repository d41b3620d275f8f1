package stabilizer

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/MoonWalka/app-booking-2-sub010/internal/tier"
	"time"
)

// NetworkState is the reload budget of one session. ReloadAttempts never
// decreases; only a new session starts from zero.
type NetworkState struct {
	ReloadAttempts int       `json:"reloadAttempts"`
	LastReloadTime time.Time `json:"lastReloadTime"`
	Session        string    `json:"session,omitempty"`
}

// NeverReloaded reports whether no reload was issued in this session yet.
func (s NetworkState) NeverReloaded() bool {
	return s.LastReloadTime.IsZero()
}

// stateStore persists NetworkState in the session tier so the budget holds
// across the reloads it issues.
type stateStore struct {
	store tier.Store
	key   string
}

func (s *stateStore) load(ctx context.Context) (NetworkState, bool, error) {
	data, found, err := s.store.Read(ctx, s.key)
	if err != nil || !found {
		return NetworkState{}, false, err
	}
	var st NetworkState
	if err = json.Unmarshal(data, &st); err != nil {
		return NetworkState{}, false, fmt.Errorf("decode network state: %w", err)
	}
	return st, true, nil
}

func (s *stateStore) save(ctx context.Context, st NetworkState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode network state: %w", err)
	}
	if err = s.store.Write(ctx, s.key, data); err != nil {
		return fmt.Errorf("write network state to %s: %w", s.store.Name(), err)
	}
	return nil
}
