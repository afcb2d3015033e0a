// Package maincmd implements opo's CLI dispatch, grounded on the teacher's
// own internal/maincmd/maincmd.go: a Cmd struct with flag-tagged fields fed
// through a github.com/mna/mainer.Parser, reflection-driven subcommand
// dispatch (buildCmds), and one exported method per subcommand. Where the
// teacher dispatches to parse/resolve/tokenize (its own four-phase
// pipeline's debug views), opo dispatches to run/repl/tokenize/disasm
// (§6, SPEC_FULL §B).
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/mna/mainer"
)

const binName = "opo"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> [<path>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s run <file> [-- <arg>...]
       %[1]s repl
       %[1]s tokenize <file>
       %[1]s disasm <file>
       %[1]s -h|--help
       %[1]s -v|--version

Compiler and bytecode virtual machine for the %[1]s programming language.

The <command> can be one of:
       run                       Compile <file> and execute its 'main'
                                 function, passing any arguments after
                                 '--' to the args() native.
       repl                      Read lines from standard input, compiling
                                 and running each as a synthetic 'main'.
       tokenize                  Run only the lexer phase and print the
                                 resulting token stream (debug aid).
       disasm                    Compile <file> and print its bytecode in
                                 textual form (debug aid; bytecode is never
                                 persisted, per the Non-goals).

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version               Print version and exit.

Environment variables:
       OPO_STDLIB_DIR            Overrides the "std/..." import base
                                 directory (default: <exe-dir>/lib).
       OPO_MAX_STEPS             Cooperative bytecode step budget per
                                 Machine; 0 (default) means unbounded.

More information on the %[1]s repository:
       https://github.com/opo-lang/opo
`, binName)
)

// envConfig holds the behavior-affecting environment variables documented
// in longUsage above, resolved once via github.com/caarlos0/env/v6 rather
// than read ad hoc with os.Getenv deep inside lang/vm or lang/compiler
// (SPEC_FULL §B).
type envConfig struct {
	StdlibDir string `env:"OPO_STDLIB_DIR"`
	MaxSteps  int64  `env:"OPO_MAX_STEPS" envDefault:"0"`
}

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	args  []string
	flags map[string]bool
	cmdFn func(context.Context, mainer.Stdio, []string) error

	env envConfig
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	if err := env.Parse(&c.env); err != nil {
		return fmt.Errorf("invalid environment configuration: %w", err)
	}

	if len(c.args) == 0 {
		return errors.New("no command specified")
	}

	cmdName := c.args[0]

	commands := buildCmds(c)
	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s", c.args[0])
	}

	if (cmdName == "run" || cmdName == "tokenize" || cmdName == "disasm") && len(c.args[1:]) == 0 {
		return fmt.Errorf("%s: a file path must be provided", cmdName)
	}

	return nil
}

func printError(stdio mainer.Stdio, err error) error {
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
	}
	return err
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: strings.ToUpper(binName) + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.args[1:]); err != nil {
		if ec, ok := err.(exitCoder); ok {
			return mainer.ExitCode(ec.ExitCode())
		}
		return mainer.Failure
	}
	return mainer.Success
}

// exitCoder lets a subcommand report one of §6's precise process exit
// codes (65 compile error, 1 runtime error, 74 file-open error, 64 usage
// error) instead of the generic mainer.Failure every other validation
// error produces.
type exitCoder interface {
	ExitCode() int
}

// valid commands are those that take a mainer.Stdio and a slice of strings
// as input, and return an error as output.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		// must take 4 parameters (including receiver) and return 1
		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}

		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
