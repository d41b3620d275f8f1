package model

import (
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"testing"
)

// TestStrategy_Tiers maps every strategy to its tiers.
func TestStrategy_Tiers(t *testing.T) {
	tests := []struct {
		strategy                       Strategy
		memory, session, local, direct bool
	}{
		{MemoryOnly, true, false, false, false},
		{SessionOnly, false, true, false, true},
		{LocalOnly, false, false, true, true},
		{MemorySession, true, true, false, false},
		{MemoryLocal, true, false, true, false},
		{TTL, true, false, true, false},
	}
	require.Len(t, tests, len(Strategies()))

	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			require.True(t, tt.strategy.Valid())
			require.Equal(t, tt.memory, tt.strategy.UsesMemory())
			require.Equal(t, tt.session, tt.strategy.UsesSession())
			require.Equal(t, tt.local, tt.strategy.UsesLocal())
			require.Equal(t, tt.direct, tt.strategy.IsDirect())
			require.Equal(t, tt.strategy == TTL, tt.strategy.EnforcesDurableTTL())
		})
	}
}

// TestParseStrategy rejects unknown names.
func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("memory_local")
	require.NoError(t, err)
	require.Equal(t, MemoryLocal, s)

	_, err = ParseStrategy("cookies")
	require.Error(t, err)
	require.False(t, Strategy("cookies").Valid())
	require.False(t, Strategy("cookies").UsesMemory())
}

// TestStrategy_Text decodes strategies from yaml.
func TestStrategy_Text(t *testing.T) {
	var v struct {
		Strategy Strategy `yaml:"strategy"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("strategy: ttl\n"), &v))
	require.Equal(t, TTL, v.Strategy)
	require.Error(t, yaml.Unmarshal([]byte("strategy: nope\n"), &v))

	out, err := yaml.Marshal(v)
	require.NoError(t, err)
	require.Equal(t, "strategy: ttl\n", string(out))
}

// TestStrategies_ReturnsCopy protects the package list.
func TestStrategies_ReturnsCopy(t *testing.T) {
	s := Strategies()
	s[0] = "changed"
	require.Equal(t, MemoryOnly, Strategies()[0])
}

// TestHitRatio is 0 without lookups.
func TestHitRatio(t *testing.T) {
	require.Equal(t, 0.0, HitRatio(0, 0))
	require.Equal(t, 0.5, HitRatio(1, 1))
	require.Equal(t, 1.0, HitRatio(4, 0))
	require.Equal(t, DefaultTTL, TTLMedium)
}
