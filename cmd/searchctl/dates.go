package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var datesCmd = &cobra.Command{
	Use:   "dates <expression>",
	Short: "Resolve a natural date expression",
	Long: `Resolve an expression such as "yesterday", ">=last-week" or "3-days-ago"
to the instant the search engine would filter on.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parser, err := newDateParser()
		if err != nil {
			return err
		}

		expr := strings.Join(args, " ")
		out := cmd.OutOrStdout()

		op, resolved, ok := parser.ParseWithOperator(expr)
		if !ok {
			fmt.Fprintf(out, "%s %s\n", red("not recognized:"), expr)
			return nil
		}

		fmt.Fprintf(out, "%s %s\n", faint("operator:"), bold(string(op)))
		fmt.Fprintf(out, "%s %s\n", faint("resolved:"), cyan(resolved.Format(time.RFC3339)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(datesCmd)
}
