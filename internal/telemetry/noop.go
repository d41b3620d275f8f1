package telemetry

import "time"

// NoOpLogs never logs.
type NoOpLogs struct{}

func (NoOpLogs) Interval() time.Duration { return 0 }

func (NoOpLogs) Close() error { return nil }
