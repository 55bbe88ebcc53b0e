//go:build !unix && !windows

package platform

func RaisePriority() error { return ErrUnsupported }
