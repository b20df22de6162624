package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/notes2gogo/backend/internal/application/services"
	"github.com/notes2gogo/backend/pkg/clock"
)

var (
	nowFlag     string
	noColorFlag bool
)

var (
	faint = color.New(color.Faint).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:          "searchctl",
	Short:        "Operator tools for the notes search backend",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColorFlag {
			color.NoColor = true
		}
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&nowFlag, "now", "", "resolve relative dates against this RFC 3339 instant instead of the system clock")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")
}

// commandClock is the system clock unless --now pins it
func commandClock() (clock.Clock, error) {
	if nowFlag == "" {
		return clock.System{}, nil
	}
	now, err := time.Parse(time.RFC3339, nowFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid --now value %q: %w", nowFlag, err)
	}
	return clock.NewFixed(now), nil
}

func newDateParser() (*services.NaturalDateParser, error) {
	clk, err := commandClock()
	if err != nil {
		return nil, err
	}
	return services.NewNaturalDateParser(clk), nil
}
