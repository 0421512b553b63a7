package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/piratebomber/go-rubolt/internal/engine"
	"github.com/piratebomber/go-rubolt/internal/runtime"
	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start the interactive REPL",
	Long: `Start an interactive read-eval-print loop. State accumulates
across inputs; errors are reported and the session continues.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runREPL(cmd)
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}

// runREPL drives the interactive loop against a single engine, so
// bindings, caches and profiles persist across inputs. Input
// continues onto following lines while brackets are unbalanced.
func runREPL(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return exitWith(exitUsage, "%v", err)
	}

	eng := engine.New(os.Stdout, cfg, engine.WithFile("<repl>"))
	fmt.Printf("rubolt %s (type exit to quit)\n", Version)

	scanner := bufio.NewScanner(os.Stdin)
	var pending strings.Builder

	for {
		if pending.Len() == 0 {
			fmt.Print(">> ")
		} else {
			fmt.Print(".. ")
		}
		if !scanner.Scan() {
			fmt.Println()
			return nil
		}
		line := scanner.Text()

		if pending.Len() == 0 && strings.TrimSpace(line) == "exit" {
			return nil
		}

		pending.WriteString(line)
		pending.WriteString("\n")
		if bracketDepth(pending.String()) > 0 {
			continue
		}
		source := pending.String()
		pending.Reset()

		val, err := eng.Execute(source)
		if err != nil {
			printREPLError(err)
			continue
		}
		if val != nil && val != runtime.TheNull {
			fmt.Println(val.String())
		}
	}
}

// printREPLError reports and continues: the REPL never exits on a
// script or parse error.
func printREPLError(err error) {
	var parseFail *engine.ParseFailure
	if errors.As(err, &parseFail) {
		fmt.Fprintln(os.Stderr, parseFail.Rendered)
		return
	}
	var scriptFail *engine.ScriptFailure
	if errors.As(err, &scriptFail) {
		fmt.Fprint(os.Stderr, scriptFail.Exc.FormatTraceback())
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
}

// bracketDepth counts unbalanced brackets outside string literals, so
// multi-line blocks can be typed naturally.
func bracketDepth(source string) int {
	depth := 0
	var quote byte
	escaped := false
	for idx := 0; idx < len(source); idx++ {
		ch := source[idx]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == quote:
				quote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'':
			quote = ch
		case '{', '(', '[':
			depth++
		case '}', ')', ']':
			depth--
		}
	}
	return depth
}
