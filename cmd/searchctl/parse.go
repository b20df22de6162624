package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/notes2gogo/backend/internal/application/services"
	"github.com/notes2gogo/backend/internal/domain/entities"
)

var traceFlag bool

type parseOutput struct {
	Query  string                `yaml:"query"`
	Parsed *entities.ParsedQuery `yaml:"parsed"`
	Stages []services.StageTrace `yaml:"stages,omitempty"`
}

var parseCmd = &cobra.Command{
	Use:   "parse <query>",
	Short: "Show how a search query is parsed",
	Long:  `Run the query parser and print the structured query as YAML.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dates, err := newDateParser()
		if err != nil {
			return err
		}
		parser := services.NewSearchQueryParser(dates)

		raw := strings.Join(args, " ")
		result := parseOutput{Query: raw}
		if traceFlag {
			result.Parsed, result.Stages = parser.Trace(raw)
		} else {
			result.Parsed = parser.Parse(raw)
		}

		data, err := yaml.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to render parsed query: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	parseCmd.Flags().BoolVar(&traceFlag, "trace", false, "include the leftover text after each parser stage")
	rootCmd.AddCommand(parseCmd)
}
