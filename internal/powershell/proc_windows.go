//go:build windows

package powershell

import (
	"os/exec"
	"syscall"
)

const createNoWindow = 0x08000000

// command hands PowerShell a prebuilt command line so the script argument is
// quoted exactly once, by QuoteArgument.
func (r *Runner) command(script string) *exec.Cmd {
	cmd := exec.Command(r.Path)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CmdLine:       CommandLine(r.Path, r.Args, script),
		CreationFlags: createNoWindow,
	}
	return cmd
}
