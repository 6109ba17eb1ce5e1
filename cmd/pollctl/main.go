// Command pollctl is a command-line client for a running middleware.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dreamware/pollshard/internal/cluster"
	"github.com/dreamware/pollshard/internal/storage"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

type options struct {
	server  string
	timeout time.Duration
}

func (o *options) client() *cluster.Client {
	return cluster.NewClient(o.server, nil)
}

func (o *options) withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:          "pollctl",
		Short:        "Query a running polling middleware",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&o.server, "server", "s", envOr("POLLCTL_SERVER", "http://localhost:3001"), "middleware base URL")
	root.PersistentFlags().DurationVar(&o.timeout, "timeout", 10*time.Second, "request timeout")

	root.AddCommand(
		newHealthCmd(o),
		newShardInfoCmd(o),
		newQueryCmd(o),
		newResultsCmd(o),
		newVoteCmd(o),
		newCloseCmd(o),
	)
	return root
}

func newHealthCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe every shard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := o.withTimeout(cmd)
			defer cancel()
			report, err := o.client().Health(ctx)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.Healthy() {
				return errors.New("cluster degraded")
			}
			return nil
		},
	}
}

func newShardInfoCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "shard-info <key>",
		Short: "Show which shard a key routes to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := o.withTimeout(cmd)
			defer cancel()
			info, err := o.client().ShardInfo(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), info)
		},
	}
}

func newQueryCmd(o *options) *cobra.Command {
	var (
		key    string
		index  int
		all    bool
		params []string
	)
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a statement on one shard or on all of them",
		Long: `Run a parameterized statement. Exactly one of --key, --shard or --all
selects the target. Parameters are passed with repeated --param flags and are
sent as integers, floats, booleans or strings, whichever parses first.`,
		Example: `  pollctl query --key user_1 "SELECT * FROM users WHERE id = ?" --param user_1
  pollctl query --all "SELECT COUNT(*) AS n FROM polls"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := storage.QueryRequest{Query: args[0], Params: parseParams(params)}
			ctx, cancel := o.withTimeout(cmd)
			defer cancel()

			c := o.client()
			var (
				out any
				err error
			)
			switch {
			case all:
				out, err = c.QueryAll(ctx, req)
			case cmd.Flags().Changed("shard"):
				out, err = c.QueryShard(ctx, index, req)
			default:
				out, err = c.Query(ctx, key, req)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "route by shard key")
	cmd.Flags().IntVar(&index, "shard", 0, "route to the shard at this index")
	cmd.Flags().BoolVar(&all, "all", false, "run on every shard")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "statement parameter (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("key", "shard", "all")
	cmd.MarkFlagsOneRequired("key", "shard", "all")
	return cmd
}

func newResultsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "results <pollId>",
		Short: "Show the vote tally of a poll",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := o.withTimeout(cmd)
			defer cancel()
			res, err := o.client().PollResults(ctx, args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s (%s)\n", res.Question, activeLabel(res.IsActive))
			for i, opt := range res.Options {
				fmt.Fprintf(w, "  [%d] %-20s %d\n", i, opt, res.Votes[i])
			}
			fmt.Fprintf(w, "total: %d\n", res.TotalVotes)
			return nil
		},
	}
}

func newVoteCmd(o *options) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "vote <pollId> <optionIndex>",
		Short: "Cast a vote on a poll",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			option, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.Wrapf(err, "option index %q", args[1])
			}
			ctx, cancel := o.withTimeout(cmd)
			defer cancel()
			v, err := o.client().CastVote(ctx, args[0], user, option)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "voting user ID")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newCloseCmd(o *options) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "close <pollId>",
		Short: "Close a poll as its creator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := o.withTimeout(cmd)
			defer cancel()
			p, err := o.client().ClosePoll(ctx, args[0], user)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "creator user ID")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func activeLabel(active bool) string {
	if active {
		return "open"
	}
	return "closed"
}

// parseParams converts flag strings to the narrowest scalar they parse as.
func parseParams(raw []string) []any {
	if len(raw) == 0 {
		return nil
	}
	out := make([]any, len(raw))
	for i, s := range raw {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			out[i] = n
		} else if f, err := strconv.ParseFloat(s, 64); err == nil {
			out[i] = f
		} else if s == "true" || s == "false" {
			out[i] = s == "true"
		} else {
			out[i] = s
		}
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
