package maincmd

import (
	"errors"
	"fmt"
	"path/filepath"
)

func dirOf(path string) string {
	dir := filepath.Dir(path)
	if dir == "" {
		return "."
	}
	return dir
}

func errUsage(msg string) error   { return errors.New(msg) }
func errRuntime(msg string) error { return errors.New(msg) }
func errFileOpen(msg string) error {
	return errors.New(msg)
}

// errCompile formats one compile diagnostic in §7's
// "[<source>:line N] Error <message>" shape (message already carries the
// "at '<token>': <reason>" portion lang/compiler.errorAt produced).
func errCompile(filename string, line int, msg string) error {
	return fmt.Errorf("[%s:line %d] Error %s", filename, line, msg)
}
