package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"navwatch/internal/domain/model"
)

var analyzeStats bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <code>",
	Short: "Print the indicator snapshot of a stored fund as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := model.ParseFundCode(args[0])
		if err != nil {
			return err
		}

		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()

		var out any
		if analyzeStats {
			out, err = a.svc.AnalyticsService().Stats(cmd.Context(), code)
		} else {
			out, err = a.svc.AnalyticsService().Analytics(cmd.Context(), code)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeStats, "stats", false, "print summary statistics instead")
}
