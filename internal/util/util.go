// Package util holds small platform helpers for the matrixkb binary.
package util

// WithDefaultCommand returns args with cmd inserted as the subcommand when
// none was given. args[0] is the program name.
func WithDefaultCommand(args []string, cmd string) []string {
	if len(args) > 1 && args[1] != "" && args[1][0] != '-' {
		return args
	}
	out := make([]string, 0, len(args)+1)
	out = append(out, args[0], cmd)
	return append(out, args[1:]...)
}
