//go:build windows

package renderer

import (
	"fmt"
	"os/exec"
	"time"
)

func setupProcessGroup(cmd *exec.Cmd) {
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	killCmd := exec.Command("taskkill", "/F", "/T", "/PID", fmt.Sprintf("%d", cmd.Process.Pid))
	_ = killCmd.Run()
	time.Sleep(250 * time.Millisecond)
}
