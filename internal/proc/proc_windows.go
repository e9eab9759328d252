//go:build windows

package proc

import (
	"os/exec"
	"syscall"
)

const detachedProcess = 0x00000008

func configureDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | detachedProcess,
	}
}
