package compiler

import (
	"os"
	"path/filepath"
	"strings"
)

// resolveImportPath maps an import path string to an absolute filesystem
// path (SPEC_FULL §C): an absolute path is kept as-is, "std/..." resolves
// under stdlibDir, and anything else resolves under baseDir. Any path with
// no extension gets ".opo" appended, mirroring how the teacher's resolver
// treats bare module names under its own root.
func (c *Compiler) resolveImportPath(path string) string {
	if filepath.IsAbs(path) {
		if filepath.Ext(path) == "" {
			path += ".opo"
		}
		return filepath.Clean(path)
	}

	rest, isStd := strings.CutPrefix(path, "std/")
	dir := c.baseDir
	rel := path
	if isStd {
		dir = c.stdlibDir
		rel = rest
	}
	if filepath.Ext(rel) == "" {
		rel += ".opo"
	}
	return filepath.Join(dir, rel)
}

// compileImport resolves path, guards against import cycles and duplicate
// compilation, and — the first time a given resolved path is seen —
// recursively compiles it with alias as the qualifying prefix for every
// top-level name it declares (§4.3, §6).
func (c *Compiler) compileImport(path, alias string) {
	abs := c.resolveImportPath(path)

	for _, onStack := range c.importStack {
		if onStack == abs {
			c.errorAtPrev("import cycle: " + abs)
			return
		}
	}
	if c.importedPaths[abs] {
		return
	}

	src, err := os.ReadFile(abs)
	if err != nil {
		c.errorAtPrev("cannot read import " + path + ": " + err.Error())
		return
	}
	c.importedPaths[abs] = true
	c.importStack = append(c.importStack, abs)

	savedAlias := c.aliasPrefix
	c.aliasPrefix = alias
	c.compileUnit(abs, string(src))
	c.aliasPrefix = savedAlias

	c.importStack = c.importStack[:len(c.importStack)-1]
}
