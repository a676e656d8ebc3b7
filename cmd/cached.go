package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var cachedCmd = &cobra.Command{
	Use:   "cached <product-id>",
	Short: "Show the last fetched competitor prices without refetching",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		prices := e.aggregator.LastFetchedPrices(ctx, args[0])

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(prices)
	},
}

func init() {
	rootCmd.AddCommand(cachedCmd)
}
