// Package platform adjusts the agent process for the host OS.
package platform

import "errors"

// ErrUnsupported is returned on systems without a priority knob.
var ErrUnsupported = errors.New("not supported on this platform")
