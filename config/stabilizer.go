package config

import "time"

type StabilizerCfg struct {
	// MaxReloadAttempts bounds the number of safe reloads per session.
	// The counter never decays; only a new session resets it.
	MaxReloadAttempts int `yaml:"max_reload_attempts"`

	// MinReloadInterval is the minimal time between two safe reloads. Example: "30s".
	MinReloadInterval time.Duration `yaml:"min_reload_interval"`

	// OnlineGrace delays the reload attempt issued after reconnection,
	// letting underlying connections settle first. Example: "5s".
	OnlineGrace time.Duration `yaml:"online_grace"`

	// SignalsPerSec throttles how many runtime signals are classified per second
	// when the stabilizer is fed through a subscription channel.
	SignalsPerSec int `yaml:"signals_per_sec"`

	// NetworkKeywords are matched (case-insensitively) against error messages
	// to recognise network-class failures.
	NetworkKeywords []string `yaml:"network_keywords"`

	// ExcludedPatterns are matched (case-insensitively) against error messages
	// to recognise failures that must never trigger recovery (bundle/chunk loading).
	ExcludedPatterns []string `yaml:"excluded_patterns"`

	// PersistState stores the reload counter in the session tier so the limit
	// holds across the reloads it issues.
	PersistState bool `yaml:"persist_state"`

	// StateKey is the session tier key the reload counter is stored under.
	StateKey string `yaml:"state_key"`
}

func (cfg *StabilizerCfg) Enabled() bool {
	return cfg != nil
}
