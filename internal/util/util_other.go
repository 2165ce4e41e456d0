//go:build !windows

package util

// IsRunFromGUI reports whether the binary was started by double-clicking it
// rather than from a shell. Only Windows can tell.
func IsRunFromGUI() bool { return false }
