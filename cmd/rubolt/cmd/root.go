package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/piratebomber/go-rubolt/internal/engine"
	"github.com/spf13/cobra"
)

// Version information (set by build flags)
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Exit codes, following the BSD sysexits convention where one fits.
const (
	exitOK      = 0
	exitUsage   = 64 // bad invocation
	exitParse   = 65 // source failed to parse
	exitScript  = 70 // uncaught script error
	exitNoInput = 74 // I/O error reading the source file
)

var rootCmd = &cobra.Command{
	Use:   "rubolt [file]",
	Short: "Rubolt language interpreter",
	Long: `go-rubolt is a Go implementation of the Rubolt scripting language.

Rubolt is a dynamically-typed language with closures, pattern
matching, typed exceptions and a tiered execution pipeline: a
tree-walking evaluator, per-call-site inline caches and a
profiling-driven JIT that promotes hot functions to bytecode and,
on amd64, to native code.

Run without arguments to start the REPL, or pass a script file.`,
	Version:       Version,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return runREPL(cmd)
		}
		return runFile(cmd, args[0])
	},
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		var coded *codedError
		if errors.As(err, &coded) {
			if coded.message != "" {
				fmt.Fprintln(os.Stderr, coded.message)
			}
			return coded.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}
	return exitOK
}

// codedError carries a process exit code through cobra.
type codedError struct {
	code    int
	message string
}

func (e *codedError) Error() string { return e.message }

func exitWith(code int, format string, args ...any) error {
	return &codedError{code: code, message: fmt.Sprintf(format, args...)}
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().String("config", "", "engine config file (YAML)")
	rootCmd.PersistentFlags().Bool("jit", true, "enable the compiled tiers")
	rootCmd.PersistentFlags().Bool("native", true, "enable native code emission")
	rootCmd.PersistentFlags().Bool("strict-match", false, "strict pattern matching")
	rootCmd.PersistentFlags().Uint64("hot-threshold", 1000, "call count before a function is compiled")
}

// loadConfig builds the engine config from defaults, the --config
// file and the command's flags.
func loadConfig(cmd *cobra.Command) (engine.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return engine.LoadConfig(path, cmd.Flags())
}
