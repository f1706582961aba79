//go:build !unix && !windows

package tts

import "os/exec"

func interrupt(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
