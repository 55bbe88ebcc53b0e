//go:build windows

package platform

import "golang.org/x/sys/windows"

// RaisePriority moves the process to the above-normal priority class.
func RaisePriority() error {
	return windows.SetPriorityClass(windows.CurrentProcess(), windows.ABOVE_NORMAL_PRIORITY_CLASS)
}
