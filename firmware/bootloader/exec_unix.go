//go:build unix

package bootloader

import (
	"os"

	"golang.org/x/sys/unix"
)

func (e *Exec) exec() error {
	return unix.Exec(e.path, e.argv, os.Environ())
}
