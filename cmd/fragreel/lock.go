package main

import (
	"github.com/gofrs/flock"
)

// lockHeld reports whether another process holds the workspace lock.
func lockHeld(path string) bool {
	probe := flock.New(path)
	ok, err := probe.TryLock()
	if err != nil {
		return false
	}
	if ok {
		_ = probe.Unlock()
		return false
	}
	return true
}
