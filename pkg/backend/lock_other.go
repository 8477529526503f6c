//go:build !unix

package backend

import "os"

// Advisory locking is only implemented on unix platforms.
func lockFile(*os.File) error   { return nil }
func unlockFile(*os.File) error { return nil }
