package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clobrano/briefbot/internal/finance"
)

func quoteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "quote SYMBOL...",
		Short: "Print a daily quote line per ticker symbol",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := finance.NewClient(cfg.Finance.BaseURL, cfg.Finance.Timeout)
			fmt.Fprintln(cmd.OutOrStdout(), c.QueryTickers(cmd.Context(), args))
			return nil
		},
	}
}
