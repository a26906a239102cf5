// Package interview implements the session state machine.
package interview

import "time"

// Orchestrator configuration constants
const (
	// Session budget when none is configured
	DefaultBudgetSeconds = 600

	// Channel buffer sizes
	EventBuffer      = 64
	CommandBuffer    = 16
	ResultBuffer     = 8
	TimerEventBuffer = 4

	// Budget for the terminal sweep flush and status write
	SweepTimeout = 10 * time.Second

	// Question index used to tag intro playback results
	introIndex = -1
)
