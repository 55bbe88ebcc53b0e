// Copyright (c) 2026 Harry Huang
package maptracker

import "github.com/MaaXYZ/maa-framework-go/v4"

// Register registers all custom recognition components for map-tracker package
func Register(t *Tracker) {
	maa.AgentServerRegisterCustomRecognition(RECOGNITION_NAME, NewInfer(t))
}
