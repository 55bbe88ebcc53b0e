//go:build unix

package platform

import "golang.org/x/sys/unix"

// Nice value of a raised process; going lower needs privileges.
const RAISED_NICE = -5

// RaisePriority lowers the nice value of the process.
func RaisePriority() error {
	return unix.Setpriority(unix.PRIO_PROCESS, 0, RAISED_NICE)
}
