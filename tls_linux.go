//go:build linux

package jobsys

import "golang.org/x/sys/unix"

// threadKey identifies the calling OS thread. Scheduler goroutines are
// locked to their threads, so the kernel thread id is a stable key.
func threadKey() uint64 {
	return uint64(unix.Gettid())
}
