package maincmd

import (
	"os"
	"path/filepath"
)

// cmdError pairs an error with one of §6's process exit codes, so Main can
// surface the exact code a subcommand wants instead of the generic
// mainer.Failure every other validation error produces.
type cmdError struct {
	err  error
	code int
}

func (e *cmdError) Error() string { return e.err.Error() }
func (e *cmdError) ExitCode() int { return e.code }

func exitErr(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cmdError{err: err, code: code}
}

// stdlibDir returns the "std/..." import base directory: c.env.StdlibDir if
// OPO_STDLIB_DIR was set, otherwise "<exe-dir>/lib" (§6).
func (c *Cmd) stdlibDir() string {
	if c.env.StdlibDir != "" {
		return c.env.StdlibDir
	}
	exe, err := os.Executable()
	if err != nil {
		return "lib"
	}
	return filepath.Join(filepath.Dir(exe), "lib")
}
