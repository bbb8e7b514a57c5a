package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPurgeCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-cache",
		Short: "Drop every cached availability entry now",
		Long: "Deletes all availability entries under their date locks. The next read " +
			"of each date rebuilds it from the ledger.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Janitor.Purge(ctx)
			if err != nil {
				return fmt.Errorf("purge: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d cached date(s)\n", n)
			return nil
		},
	}
}

func newSeedPricingCmd() *cobra.Command {
	var price string

	cmd := &cobra.Command{
		Use:   "seed-pricing",
		Short: "Write default booking headers and the weekday pricing table into an empty ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if price == "" {
				price = a.Config.Ledger.DefaultPrice
			}
			if _, err := a.SeedHeaders(ctx); err != nil {
				return err
			}
			wrote, err := a.SeedPricing(ctx, price)
			if err != nil {
				return err
			}
			if !wrote {
				fmt.Fprintln(cmd.OutOrStdout(), "pricing table already present; nothing written")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pricing table seeded at %s\n", price)
			return nil
		},
	}
	cmd.Flags().StringVar(&price, "price", "", "price for every day (defaults to PRICING_DEFAULT)")
	return cmd
}
