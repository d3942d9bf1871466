package wizard

import (
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotVersion is bumped when the persisted shape changes incompatibly.
const SnapshotVersion = 1

// Snapshot is the persisted projection of a session. File bytes are never part of it.
type Snapshot struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"savedAt"`
	State   State     `json:"state"`
}

// EncodeSnapshot serializes s.
func EncodeSnapshot(s State, savedAt time.Time) ([]byte, error) {
	b, err := json.Marshal(Snapshot{Version: SnapshotVersion, SavedAt: savedAt.UTC(), State: s})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

// DecodeSnapshot restores a state saved by EncodeSnapshot.
func DecodeSnapshot(b []byte) (State, error) {
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return State{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return State{}, fmt.Errorf("decode snapshot: unsupported version %d", snap.Version)
	}
	if index(snap.State.Current) < 0 {
		return State{}, fmt.Errorf("decode snapshot: unknown step %q", snap.State.Current)
	}
	if snap.State.Completed == nil {
		snap.State.Completed = make(map[StepID]bool)
	}
	return snap.State, nil
}
