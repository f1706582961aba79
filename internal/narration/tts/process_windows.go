//go:build windows

package tts

import "os/exec"

// interrupt kills the speech process. Windows has no SIGTERM equivalent for
// console programs.
func interrupt(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
