//go:build unix

package tts

import (
	"os/exec"
	"syscall"
)

// interrupt asks the speech process to stop on Unix systems
func interrupt(cmd *exec.Cmd) error {
	return cmd.Process.Signal(syscall.SIGTERM)
}
