package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the users, polls and votes tables on every shard",
		Long: `Applies the schema to every reachable shard. Statements are idempotent,
so migrate can be rerun safely. Exits non-zero if any shard could not be
migrated; the others are still migrated.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			coord := newCoordinator(a.cfg, a.logger)
			defer coord.Close()

			connected := coord.Init(cmd.Context())
			if err := coord.Executor().Migrate(cmd.Context(), coord.Router().AllShards()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d of %d shards\n", connected, coord.Router().ShardCount())
			return nil
		},
	}
}
