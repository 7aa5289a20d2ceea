/*
Cfgparse starts an interactive session that loads a grammar from a JSON file
and recognizes or parses lines of input against it using the earley or cyk
engine.

Usage:

	cfgparse [flags] GRAMMAR_FILE

Once started, each line typed is recognized against the loaded grammar; on a
successful parse, the resulting tree is rendered to stdout, and on failure
the syntax error's full report (offending line, cursor, and reason) is
printed instead. Type QUIT to exit.

The flags are:

	-v, --version
		Give the current version of cfgparse and then exit.

	-e, --engine earley|cyk
		Select the recognizer/parser engine to use. Defaults to earley.

	-a, --all
		Show every derivation instead of just one, when more than one
		exists.

	-d, --direct
		Force reading directly from stdin instead of going through GNU
		readline, even if launched in a tty.
*/
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dekarrin/cfgparse/cfgerr"
	"github.com/dekarrin/cfgparse/cnf"
	"github.com/dekarrin/cfgparse/cyk"
	"github.com/dekarrin/cfgparse/earley"
	"github.com/dekarrin/cfgparse/grammarjson"
	"github.com/dekarrin/cfgparse/internal/input"
	"github.com/dekarrin/cfgparse/internal/version"
	"github.com/dekarrin/cfgparse/tree"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
)

const (
	ExitSuccess = iota
	ExitUsageError
	ExitGrammarError
)

var (
	flagVersion = pflag.BoolP("version", "v", false, "Give the version of cfgparse and then exit.")
	flagEngine  = pflag.StringP("engine", "e", "earley", "Engine to use: earley or cyk.")
	flagAll     = pflag.BoolP("all", "a", false, "Show every derivation instead of just one.")
	forceDirect = pflag.BoolP("direct", "d", false, "Force reading directly from stdin instead of GNU readline.")
)

func main() {
	os.Exit(run())
}

func run() int {
	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s\n", version.Current)
		return ExitSuccess
	}

	args := pflag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: cfgparse [flags] GRAMMAR_FILE\nDo -h for help.\n")
		return ExitUsageError
	}

	eng, err := loadEngine(args[0], *flagEngine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		return ExitGrammarError
	}

	r, closeFn, err := newReader(*forceDirect)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		return ExitGrammarError
	}
	defer closeFn()

	for {
		line, err := r()
		if err != nil {
			if err == io.EOF {
				return ExitSuccess
			}
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			return ExitGrammarError
		}

		if line == "QUIT" {
			return ExitSuccess
		}

		recognizeAndPrint(eng, line, *flagAll)
	}
}

// reader is a closure over either an InteractiveLineReader or a
// DirectLineReader so run's main loop doesn't need to know which is in use.
type reader func() (string, error)

func newReader(forceDirect bool) (reader, func(), error) {
	if !forceDirect && isatty.IsTerminal(os.Stdin.Fd()) {
		icr, err := input.NewInteractiveReader("> ")
		if err != nil {
			return nil, nil, fmt.Errorf("initialize readline: %w", err)
		}
		return icr.ReadLine, func() { icr.Close() }, nil
	}

	dcr := input.NewDirectReader(os.Stdin)
	return dcr.ReadLine, func() { dcr.Close() }, nil
}

// engine is the interface common to *earley.Parser and *cyk.Parser.
type engine interface {
	Recognizes(input string) bool
	SyntaxTree(input string) (*tree.Tree, error)
	AllSyntaxTrees(input string) ([]*tree.Tree, error)
}

func loadEngine(path, engineName string) (engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grammar file: %w", err)
	}

	var gj grammarjson.Grammar
	if err := json.Unmarshal(data, &gj); err != nil {
		return nil, fmt.Errorf("parse grammar file: %w", err)
	}

	g, err := gj.ToGrammar()
	if err != nil {
		return nil, fmt.Errorf("build grammar: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("validate grammar: %w", err)
	}

	switch engineName {
	case "earley":
		return earley.New(g), nil
	case "cyk":
		return cyk.New(cnf.Normalize(g)), nil
	default:
		return nil, fmt.Errorf("engine must be one of 'earley', 'cyk', got %q", engineName)
	}
}

func recognizeAndPrint(eng engine, line string, all bool) {
	if all {
		trees, err := eng.AllSyntaxTrees(line)
		if err != nil {
			printParseError(err, line)
			return
		}
		for i, t := range trees {
			fmt.Printf("--- derivation %d ---\n%s\n", i+1, t.Render(line))
		}
		return
	}

	t, err := eng.SyntaxTree(line)
	if err != nil {
		printParseError(err, line)
		return
	}
	fmt.Println(t.Render(line))
}

func printParseError(err error, line string) {
	if se, ok := err.(cfgerr.SyntaxError); ok {
		fmt.Println(se.FullMessage())
		return
	}
	fmt.Println(err.Error())
}
