//go:build !linux

package main

import (
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

// golang.design/x/hotkey needs the process main thread on darwin and
// windows, so the real entrypoint runs under mainthread.Init.
func main() {
	mainthread.Init(run)
}
