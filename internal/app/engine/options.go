package engine

import "time"

// Options represents configuration options for the Engine.
type Options struct {
	// SnapshotInterval is how often the snapshot manager checks whether a new
	// snapshot is due.
	SnapshotInterval time.Duration
	// SnapshotOffsetDelta is how far the intake offset must have advanced past
	// the last snapshot before a new one is taken.
	SnapshotOffsetDelta int64
	// DepthLevels is how many price levels per side go into market data
	// updates.
	DepthLevels int
}

// DefaultEngineOptions returns the default engine options.
func DefaultEngineOptions() *Options {
	return &Options{
		SnapshotInterval:    30 * time.Second,
		SnapshotOffsetDelta: 1000,
		DepthLevels:         10,
	}
}
