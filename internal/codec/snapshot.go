package codec

import (
	"fmt"
	"time"
)

// SnapshotVersion is the current memory snapshot format.
const SnapshotVersion = 1

// Snapshot is the durable image of the whole memory tier taken before a safe reload.
// Each entry keeps its original write time and TTL.
type Snapshot struct {
	Version int               `json:"version"`
	TakenAt int64             `json:"takenAt"` // unix ms
	Entries map[string]Record `json:"entries"`
}

func NewSnapshot(takenAt time.Time, size int) *Snapshot {
	return &Snapshot{
		Version: SnapshotVersion,
		TakenAt: takenAt.UnixMilli(),
		Entries: make(map[string]Record, size),
	}
}

// DecodeSnapshot parses a snapshot payload and checks its version.
func (c *Codec) DecodeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := c.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot v%d: %w", snap.Version, ErrUnsupportedVersion)
	}
	return &snap, nil
}
