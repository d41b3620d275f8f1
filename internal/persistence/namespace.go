package persistence

import (
	"github.com/MoonWalka/app-booking-2-sub010/model"
	"time"
)

const namespaceSep = ":"

// Namespace is a key-prefixed view of the service so independent collaborators
// ("auth", "forms", ...) can share it without key collisions.
// Stats and Cleanup are not scoped: they report on and sweep the whole service.
type Namespace struct {
	svc    *Service
	prefix string
}

func (s *Service) Namespace(prefix string) *Namespace {
	return &Namespace{svc: s, prefix: prefix}
}

func (n *Namespace) Prefix() string { return n.prefix }

func (n *Namespace) Get(key string, strategy model.Strategy) (any, bool) {
	return n.svc.Get(n.key(key), strategy)
}

func (n *Namespace) Set(key string, value any, strategy model.Strategy, ttl time.Duration) bool {
	return n.svc.Set(n.key(key), value, strategy, ttl)
}

func (n *Namespace) Remove(key string, strategy model.Strategy) bool {
	return n.svc.Remove(n.key(key), strategy)
}

func (n *Namespace) Stats() model.Stats { return n.svc.Stats() }
func (n *Namespace) Cleanup() int       { return n.svc.Cleanup() }

// Namespace nests a child prefix under this one.
func (n *Namespace) Namespace(prefix string) *Namespace {
	return &Namespace{svc: n.svc, prefix: n.key(prefix)}
}

func (n *Namespace) key(key string) string {
	return n.prefix + namespaceSep + key
}
