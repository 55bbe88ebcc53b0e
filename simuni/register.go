package simuni

import "github.com/MaaXYZ/maa-framework-go/v4"

// Register registers the Simulated Universe custom actions.
func Register(assets *Assets) {
	maa.AgentServerRegisterCustomAction("SimUniRunRoute", NewRunRoute(assets))
}
