// Copyright (c) 2026 Harry Huang
package maptracker

// Recognition name registered with the agent server
const RECOGNITION_NAME = "MapTrackerInfer"

// Inference configuration
const (
	// Estimates below this confidence are reported as misses
	MIN_CONFIDENCE = 0.3
	// Speed used for the search window around a hinted position, world px/s
	HINT_SPEED = 35.0
	// Time since the hinted position, ms
	HINT_ELAPSED_MS = 1000
)
