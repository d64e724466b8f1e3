//go:build linux

package cycle

import "golang.org/x/sys/unix"

// pinCurrentThread pins the calling OS thread to a single CPU core via
// sched_setaffinity, the real-time-scheduling primitive SPEC_FULL.md §1
// treats as an OS facility collaborator.
func pinCurrentThread(core int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	return unix.SchedSetaffinity(0, &set)
}

// setCurrentThreadPriority raises the calling OS thread's scheduling
// priority using setpriority(2) against the thread id, matching the
// teacher's habit of reaching for golang.org/x/sys/unix directly for
// syscalls the standard library doesn't expose.
func setCurrentThreadPriority(priority int) error {
	tid := unix.Gettid()
	return unix.Setpriority(unix.PRIO_PROCESS, tid, priority)
}
