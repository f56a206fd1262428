//go:build !linux

package util

import "errors"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// FileWatcher is a placeholder on platforms without inotify support.
type FileWatcher struct{}

// ---------------------
// ----- Functions -----
// ---------------------

// NewFileWatcher reports that watch mode is unsupported on this platform.
func NewFileWatcher(onChange func(string)) (*FileWatcher, error) {
	return nil, errors.New("watch mode is only supported on linux")
}

// AddFile is a no-op on unsupported platforms.
func (fw *FileWatcher) AddFile(path string) error {
	return nil
}

// Watch is a no-op on unsupported platforms.
func (fw *FileWatcher) Watch() {}

// Close is a no-op on unsupported platforms.
func (fw *FileWatcher) Close() error {
	return nil
}
