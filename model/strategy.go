package model

import "fmt"

// Strategy names the combination of tiers a Get/Set/Remove call touches.
// It is supplied per call, so a key may be read under a different strategy
// than it was written with.
type Strategy string

const (
	// MemoryOnly touches the in-process TTL cache only.
	MemoryOnly Strategy = "memory_only"
	// SessionOnly reads/writes the session tier directly (no memory warming, no TTL).
	SessionOnly Strategy = "session_only"
	// LocalOnly reads/writes the long-lived tier directly (no memory warming, no TTL).
	LocalOnly Strategy = "local_only"
	// MemorySession checks memory first, then the session tier, warming memory on durable hits.
	MemorySession Strategy = "memory_session"
	// MemoryLocal checks memory first, then the long-lived tier, warming memory on durable hits.
	MemoryLocal Strategy = "memory_local"
	// TTL is memory + long-lived tier where the written TTL stays authoritative on durable reads.
	TTL Strategy = "ttl"
)

// DefaultStrategy is used by callers that have no stronger opinion.
const DefaultStrategy = MemorySession

var strategies = []Strategy{MemoryOnly, SessionOnly, LocalOnly, MemorySession, MemoryLocal, TTL}

// Strategies returns every known strategy.
func Strategies() []Strategy {
	out := make([]Strategy, len(strategies))
	copy(out, strategies)
	return out
}

func ParseStrategy(s string) (Strategy, error) {
	for _, st := range strategies {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown cache strategy %q", s)
}

func (s Strategy) Valid() bool {
	_, err := ParseStrategy(string(s))
	return err == nil
}

// UsesMemory reports whether the strategy includes the in-process TTL cache.
func (s Strategy) UsesMemory() bool {
	switch s {
	case MemoryOnly, MemorySession, MemoryLocal, TTL:
		return true
	}
	return false
}

// UsesSession reports whether the strategy includes the session tier.
func (s Strategy) UsesSession() bool {
	return s == SessionOnly || s == MemorySession
}

// UsesLocal reports whether the strategy includes the long-lived tier.
func (s Strategy) UsesLocal() bool {
	switch s {
	case LocalOnly, MemoryLocal, TTL:
		return true
	}
	return false
}

// IsDirect reports whether durable reads bypass the memory warm path.
func (s Strategy) IsDirect() bool {
	return s == SessionOnly || s == LocalOnly
}

// EnforcesDurableTTL reports whether a durable hit is checked against the TTL it was written with.
// Only the TTL strategy does this; durable records read through any other strategy never expire.
func (s Strategy) EnforcesDurableTTL() bool {
	return s == TTL
}

func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s), nil
}
