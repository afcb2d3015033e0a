package natives

import "testing"

// wantName asserts that native index n has the given name, keeping the
// table index-stable against the literal list in spec §6: compiler and VM
// both dispatch by this integer, so a silent reorder here is a desync bug
// rather than a mere rename.
func wantName(t *testing.T, n int, name string) {
	t.Helper()
	if n >= len(ByIndex) {
		t.Fatalf("native index %d: table has only %d entries", n, len(ByIndex))
	}
	if got := ByIndex[n].Name; got != name {
		t.Errorf("native index %d: got name %q, want %q", n, got, name)
	}
}

func TestNativeIndexStability(t *testing.T) {
	want := []string{
		"len", "append", "str", "readFile", "writeFile", "args", "int", "print",
		"println", "readLine", "exit", "clock", "system", "keys", "delete",
		"ascii", "char", "has", "error", "time", "sqrt", "sin", "cos", "tan",
		"log", "flt", "rand", "seed", "ffiLoad", "ffiCall", "close",
		"json_stringify", "json_parse", "httpGet", "regexMatch", "fileExists",
		"removeFile", "listDir",
	}
	if len(want) != len(Table) {
		t.Fatalf("natives.Table has %d entries, want %d", len(Table), len(want))
	}
	for i, name := range want {
		wantName(t, i, name)
	}
}

func TestByNameMatchesByIndex(t *testing.T) {
	for i, n := range ByIndex {
		if ByName[n.Name] != n {
			t.Errorf("ByName[%q] does not match ByIndex[%d]", n.Name, i)
		}
	}
}
