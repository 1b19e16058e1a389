//go:build purego || !sqlite_cgo

package storage

// Default build: pure Go SQLite, no C compiler needed for the history store.
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
