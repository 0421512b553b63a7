// Command rubolt is the Rubolt language interpreter.
//
// Usage:
//
//	rubolt             start the REPL
//	rubolt script.rbo  run a script file
//	rubolt <command>   run a subcommand (run, lex, parse, repl, version)
package main

import (
	"os"

	"github.com/piratebomber/go-rubolt/cmd/rubolt/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
