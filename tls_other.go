//go:build !linux

package jobsys

import (
	"bytes"
	"runtime"
	"strconv"
)

// threadKey identifies the calling goroutine where no cheap thread id
// syscall exists. The goroutine id from the stack header is stable for
// the goroutine's lifetime, which is what the registry needs: every
// context is owned by exactly one goroutine.
func threadKey() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// "goroutine 123 [running]:"
	fields := bytes.Fields(buf[:n])
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		panic("jobsys: cannot parse goroutine id")
	}
	return id
}
