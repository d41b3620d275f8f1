package testhelp

import (
	"context"
	"errors"
	"github.com/MoonWalka/app-booking-2-sub010/internal/tier"
	"sync/atomic"
)

// ErrBroken is returned by every failing operation of a BrokenStore.
var ErrBroken = errors.New("storage unavailable")

// BrokenStore wraps a Store and fails the operations switched on.
type BrokenStore struct {
	tier.Store
	FailRead   atomic.Bool
	FailWrite  atomic.Bool
	FailDelete atomic.Bool
	Reads      atomic.Int64
	Writes     atomic.Int64
}

func NewBrokenStore(inner tier.Store) *BrokenStore {
	return &BrokenStore{Store: inner}
}

func (b *BrokenStore) Read(ctx context.Context, key string) ([]byte, bool, error) {
	b.Reads.Add(1)
	if b.FailRead.Load() {
		return nil, false, ErrBroken
	}
	return b.Store.Read(ctx, key)
}

func (b *BrokenStore) Write(ctx context.Context, key string, data []byte) error {
	b.Writes.Add(1)
	if b.FailWrite.Load() {
		return ErrBroken
	}
	return b.Store.Write(ctx, key, data)
}

func (b *BrokenStore) Delete(ctx context.Context, key string) error {
	if b.FailDelete.Load() {
		return ErrBroken
	}
	return b.Store.Delete(ctx, key)
}
