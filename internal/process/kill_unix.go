//go:build !windows

package process

import "syscall"

// KillProcessGroup sends SIGKILL to the process group led by pid, taking
// the browser's renderer and GPU helpers down with it. Non-positive pids
// are ignored: -0 would signal the caller's own group.
func KillProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	// launcher.Kill covers the leader if the group is already gone
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
