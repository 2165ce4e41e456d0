//go:build !unix

package bootloader

import (
	"errors"
	"os"
	"os/exec"
)

// Without execve the command runs as a child and its exit status becomes
// ours.
func (e *Exec) exec() error {
	cmd := exec.Command(e.path, e.argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.ExitCode())
	}
	if err == nil {
		os.Exit(0)
	}
	return err
}
