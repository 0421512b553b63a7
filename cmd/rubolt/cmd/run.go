package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/piratebomber/go-rubolt/internal/engine"
	"github.com/piratebomber/go-rubolt/internal/lexer"
	"github.com/piratebomber/go-rubolt/internal/parser"
	"github.com/spf13/cobra"
)

var (
	evalExpr string
	dumpAST  bool
	dumpIR   bool
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run a Rubolt file or expression",
	Long: `Execute a Rubolt program from a file or inline expression.

Examples:
  # Run a script file
  rubolt run script.rbo

  # Evaluate an inline expression
  rubolt run -e "print(1 + 2 * 3)"

  # Run with AST dump (for debugging)
  rubolt run --dump-ast script.rbo

  # Show the IR of functions the JIT compiled
  rubolt run --dump-ir script.rbo`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if evalExpr != "" {
			return runSource(cmd, evalExpr, "<eval>")
		}
		if len(args) == 1 {
			return runFile(cmd, args[0])
		}
		return exitWith(exitUsage, "either provide a file path or use -e flag for inline code")
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "evaluate inline code instead of reading from file")
	runCmd.Flags().BoolVar(&dumpAST, "dump-ast", false, "dump the parsed AST (for debugging)")
	runCmd.Flags().BoolVar(&dumpIR, "dump-ir", false, "dump the IR of JIT-compiled functions after the run")
}

// runFile executes a script file with the exit-code contract: 74 when
// the file cannot be read, 65 on parse errors, 70 on an uncaught
// script error.
func runFile(cmd *cobra.Command, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return exitWith(exitNoInput, "cannot read %s: %v", path, err)
	}
	return runSourceNamed(cmd, string(content), path)
}

func runSource(cmd *cobra.Command, source, name string) error {
	return runSourceNamed(cmd, source, name)
}

func runSourceNamed(cmd *cobra.Command, source, name string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return exitWith(exitUsage, "%v", err)
	}

	if dumpAST {
		l := lexer.New(source)
		p := parser.New(l)
		program := p.ParseProgram()
		if !p.HadError() {
			fmt.Println("AST:")
			fmt.Println(program.String())
			fmt.Println()
		}
	}

	eng := engine.New(os.Stdout, cfg, engine.WithFile(name))
	if _, err := eng.Execute(source); err != nil {
		var parseFail *engine.ParseFailure
		if errors.As(err, &parseFail) {
			fmt.Fprintln(os.Stderr, parseFail.Rendered)
			return exitWith(exitParse, "parsing failed with %d error(s)", len(parseFail.Errors))
		}
		var scriptFail *engine.ScriptFailure
		if errors.As(err, &scriptFail) {
			return exitWith(exitScript, "%s", scriptFail.Exc.FormatTraceback())
		}
		return err
	}

	if dumpIR {
		fmt.Print(eng.DisassembleAll())
	}
	return nil
}
