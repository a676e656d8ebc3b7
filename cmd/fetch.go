package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var (
	fetchBrand string
	fetchModel string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <product-id>",
	Short: "Aggregate current competitor prices for a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		prices, err := e.aggregator.FetchCompetitorPrices(ctx, args[0], fetchModel, fetchBrand)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(prices)
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchBrand, "brand", "", "product brand")
	fetchCmd.Flags().StringVar(&fetchModel, "model", "", "product model")
	rootCmd.AddCommand(fetchCmd)
}
