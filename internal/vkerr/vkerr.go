// Package vkerr completes the error-handling pattern the teacher leaves
// half-defined: Result wraps a vk.Result into an error with its call
// site, Must panics after running cleanup (the teacher's orPanic), and
// Fatal terminates the process for the §7 "fatal construction" error kind.
package vkerr

import (
	"fmt"
	"os"
	"runtime"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/dieselpt/internal/vklog"
)

// Result converts a non-success vk.Result into an error naming the
// caller's call site, or nil on vk.Success.
func Result(ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	if pc, file, line, ok := runtime.Caller(1); ok {
		fn := runtime.FuncForPC(pc)
		name := "unknown"
		if fn != nil {
			name = fn.Name()
		}
		return fmt.Errorf("vulkan error: %d in %s (%s:%d)", ret, name, file, line)
	}
	return fmt.Errorf("vulkan error: %d", ret)
}

// Must panics with err after running the supplied cleanup functions, in
// order. It is the teacher's orPanic renamed; use it at constructor
// boundaries whose failure indicates a programming error rather than a
// recoverable runtime condition.
func Must(err error, cleanup ...func()) {
	if err == nil {
		return
	}
	for _, fn := range cleanup {
		fn()
	}
	panic(err)
}

// Fatal logs err (if a Logger is supplied) and aborts the process. Use
// for §7 "fatal construction" kinds: missing device/queue/extension,
// allocation failure, shader compile failure, capacity exceeded.
func Fatal(log *vklog.Logger, err error) {
	if err == nil {
		return
	}
	if log != nil {
		log.Error("%v", err)
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}

// Recover turns a panic recovered by the caller's deferred call into an
// error, preserving a stack trace when one was captured. Mirrors the
// teacher's checkErrStack.
func Recover(r any) error {
	if r == nil {
		return nil
	}
	stack := make([]byte, 32*1024)
	n := runtime.Stack(stack, false)
	switch v := r.(type) {
	case error:
		return fmt.Errorf("%w\n%s", v, stack[:n])
	default:
		return fmt.Errorf("%v\n%s", v, stack[:n])
	}
}
