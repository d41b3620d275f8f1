package config

import "time"

type CleanupCfg struct {
	// Interval between two sweeps of the memory tier. Example: "30m".
	Interval time.Duration `yaml:"interval"`

	// OnClose runs one last sweep when the service is closed.
	OnClose bool `yaml:"on_close"`
}

func (cfg *CleanupCfg) Enabled() bool {
	return cfg != nil
}

type TelemetryCfg struct {
	// Interval between two stats log lines. Example: "1m".
	Interval time.Duration `yaml:"interval"`
}

func (cfg *TelemetryCfg) Enabled() bool {
	return cfg != nil
}
