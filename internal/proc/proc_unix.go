//go:build !windows

package proc

import (
	"os/exec"
	"syscall"
)

func configureDetached(cmd *exec.Cmd) {
	// 獨立 session，脫離啟動端的 process group 與控制終端
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
