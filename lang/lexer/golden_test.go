package lexer_test

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"testing"

	"github.com/mna/mainer"

	"github.com/opo-lang/opo/internal/filetest"
	"github.com/opo-lang/opo/internal/maincmd"
)

var testUpdateLexerTests = flag.Bool("test.update-lexer-tests", false, "If set, replace expected lexer golden test results with actual results.")

// TestTokenizeGolden drives the `tokenize` subcommand over every .opo file
// in testdata/in and diffs its stdout/stderr against the matching golden
// file in testdata/out, the same table-driven golden-file shape the
// teacher's own lang/scanner/scanner_test.go uses via internal/filetest.
func TestTokenizeGolden(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".opo") {
		t.Run(fi.Name(), func(t *testing.T) {
			var buf, ebuf bytes.Buffer
			stdio := mainer.Stdio{
				Stdout: &buf,
				Stderr: &ebuf,
			}

			var c maincmd.Cmd
			// error is ignored, we just want it reflected in ebuf
			_ = c.Tokenize(context.Background(), stdio, []string{filepath.Join(srcDir, fi.Name())})
			filetest.DiffOutput(t, fi, buf.String(), resultDir, testUpdateLexerTests)
			filetest.DiffErrors(t, fi, ebuf.String(), resultDir, testUpdateLexerTests)
		})
	}
}
