// cmd/decode.go
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/morsetrainer/internal/cw"
)

var decodeCmd = &cobra.Command{
	Use:   "decode CODES...",
	Short: "Decode Morse code to text",
	Long: `Decode space separated Morse codes written with '.' and '-'. A "/" marks
a word break. Codes that match no character print as '?'.`,
	Example: `  morsetrainer decode ... --- ...
  morsetrainer decode -.-. --.- / -.. .`,
	// Codes such as "-.-." would otherwise parse as shorthand flags
	DisableFlagParsing: true,
	Args:               cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 && (args[0] == "-h" || args[0] == "--help") {
			return cmd.Help()
		}
		fmt.Fprintln(cmd.OutOrStdout(), cw.DecodeText(strings.Join(args, " ")))
		return nil
	},
}
