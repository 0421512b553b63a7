package cmd

import (
	"fmt"
	"os"

	rerrors "github.com/piratebomber/go-rubolt/internal/errors"
	"github.com/piratebomber/go-rubolt/internal/lexer"
	"github.com/piratebomber/go-rubolt/internal/parser"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a Rubolt file and print the AST",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return exitWith(exitNoInput, "cannot read %s: %v", args[0], err)
		}
		source := string(content)

		l := lexer.New(source)
		p := parser.New(l)
		program := p.ParseProgram()

		if p.HadError() {
			parseErrs := p.Errors()
			rendered := make([]*rerrors.SourceError, len(parseErrs))
			for idx, pe := range parseErrs {
				rendered[idx] = rerrors.NewSourceError(pe.Pos, pe.Message, source, args[0])
			}
			fmt.Fprintln(os.Stderr, rerrors.FormatErrors(rendered, true))
			return exitWith(exitParse, "parsing failed with %d error(s)", len(parseErrs))
		}

		fmt.Println(program.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
