package cmd

import (
	"fmt"
	"os"

	"github.com/piratebomber/go-rubolt/internal/lexer"
	"github.com/spf13/cobra"
)

var lexCmd = &cobra.Command{
	Use:   "lex [file]",
	Short: "Tokenize a Rubolt file and print the token stream",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return exitWith(exitNoInput, "cannot read %s: %v", args[0], err)
		}

		l := lexer.New(string(content))
		for {
			tok := l.NextToken()
			fmt.Printf("%4d:%-3d %-12s %q\n", tok.Pos.Line, tok.Pos.Column, tok.Type, tok.Literal)
			if tok.Type == lexer.EOF {
				break
			}
		}

		if errs := l.Errors(); len(errs) > 0 {
			for _, lexErr := range errs {
				fmt.Fprintln(os.Stderr, lexErr.Error())
			}
			return exitWith(exitParse, "lexing failed with %d error(s)", len(errs))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lexCmd)
}
