// cmd/rondo/main.go
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"rondo/internal/repl"
)

const version = "0.1.0"

func main() {
	var libs []string
	var file string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; {
		case arg == "-h" || arg == "--help":
			showUsage()
			return
		case arg == "-v" || arg == "--version":
			fmt.Printf("rondo %s\n", version)
			return
		case arg == "-L":
			i++
			if i >= len(args) {
				fail("option -L requires a path")
			}
			libs = append(libs, args[i])
		case strings.HasPrefix(arg, "-L"):
			libs = append(libs, arg[2:])
		case strings.HasPrefix(arg, "-"):
			fail("unknown option %q", arg)
		default:
			if file != "" {
				fail("only one input file may be given")
			}
			file = arg
		}
	}

	r, err := repl.New(libs)
	if err != nil {
		log.Fatalf("%s: %v", prog(), err)
	}

	if file != "" {
		if !r.RunFile(file) {
			os.Exit(1)
		}
		return
	}
	r.Run()
}

func showUsage() {
	fmt.Printf(`Usage: %s [options] [file]

Evaluates rounds of input from the file, or interactively when no file
is given.

Options:
  -L <path>        Add a native-library search path (repeatable)
  -v, --version    Print version and exit
  -h, --help       Show this help

Interactive commands:
  :block           Read the next round as one multi-line block (end with %s)
  :type <expr>     Print the inferred type of an expression
`, prog(), ":end")
}

func prog() string {
	return filepath.Base(os.Args[0])
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", prog(), fmt.Sprintf(format, args...))
	os.Exit(2)
}
