//go:build !windows

package renderer

import (
	"os/exec"
	"syscall"
	"time"
)

func setupProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		_ = cmd.Process.Signal(syscall.SIGTERM)
		time.Sleep(250 * time.Millisecond)
		_ = cmd.Process.Kill()
		return
	}
	_ = syscall.Kill(-pgid, syscall.SIGTERM)
	time.Sleep(250 * time.Millisecond)
	if stillRunning(cmd.Process.Pid) {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	}
}

func stillRunning(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}
