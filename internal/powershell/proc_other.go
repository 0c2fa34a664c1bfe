//go:build !windows

package powershell

import (
	"os/exec"
	"slices"
)

// command passes the script as a discrete argv entry; without a shell in
// between there is no command line to quote.
func (r *Runner) command(script string) *exec.Cmd {
	args := append(slices.Clone(r.Args), script)
	return exec.Command(r.Path, args...)
}
