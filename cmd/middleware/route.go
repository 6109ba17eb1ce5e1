package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dreamware/pollshard/internal/shard"
)

func newRouteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "route <key>...",
		Short: "Print the shard each key routes to, without connecting",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			router := shard.NewRouter(a.cfg.Shards)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tINDEX\tSHARD")
			for _, key := range args {
				idx, err := router.IndexFor(key)
				if err != nil {
					return err
				}
				cfg, _ := router.ShardByIndex(idx)
				fmt.Fprintf(tw, "%s\t%d\t%s\n", key, idx, cfg.ID())
			}
			return tw.Flush()
		},
	}
}
