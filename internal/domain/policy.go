package domain

import "time"

// TrackingPolicy holds lifecycle policy parameters (pure domain type).
type TrackingPolicy struct {
	// MaxActiveItems caps simultaneously in-progress items per user.
	MaxActiveItems int

	// InactivityThreshold is how long a live session may run untouched
	// before the sweep auto-pauses it.
	InactivityThreshold time.Duration

	// ReworkFallbackRatio estimates rework time as a share of total time for
	// items returned before a snapshot was recorded.
	ReworkFallbackRatio float64
}
