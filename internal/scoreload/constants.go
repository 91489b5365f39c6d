package scoreload

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	PollInterval         = 50 * time.Millisecond
	PercentageMultiplier = 100
)
