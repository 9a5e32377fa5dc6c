package scheduler

import (
	"context"
)

// Client owns the post lifecycle: it claims due work, drives deliveries
// through the publisher, applies the retry policy and cleans up after
// itself. Posts are mutated exclusively here once the intake flow has
// queued them.
type Client interface {
	// RunTick claims due posts and walks each through one delivery attempt
	RunTick(ctx context.Context) error

	// SweepCompleted deletes delivered one-shot posts and reports how many
	SweepCompleted(ctx context.Context) (int64, error)

	ScheduleDeliveries(ctx context.Context) error
	ScheduleRetentionSweep(ctx context.Context) error
	ScheduleQueueDigest(ctx context.Context) error
}
