// Package grammar carries no runtime code: it holds a documentation-only
// EBNF restatement of §4.3's grammar (opo.ebnf), verified well-formed and
// fully reachable the same way the teacher's lang/grammar package verifies
// its own grammar.ebnf/grammar_lua.ebnf pair.
package grammar

import (
	"os"
	"testing"

	"golang.org/x/exp/ebnf"
)

func TestEBNF(t *testing.T) {
	files := []string{
		"opo.ebnf",
	}
	for _, filename := range files {
		t.Run(filename, func(t *testing.T) {
			f, err := os.Open(filename)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()

			g, err := ebnf.Parse(filename, f)
			if err != nil {
				t.Fatal(err)
			}
			if err := ebnf.Verify(g, "Chunk"); err != nil {
				t.Fatal(err)
			}
		})
	}
}
