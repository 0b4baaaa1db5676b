package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// SummaryOptions holds flags for the summary command.
type SummaryOptions struct {
	*RootOptions
	DryRun bool
}

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SummaryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Send the daily best-price overview",
		Long: `Scrape the basket and send a daily summary message.

The summary names the cheapest store for every item with the per-store
prices inline. No diffing happens and the snapshot is left untouched;
the next run still compares against the last full pass.

Example:
  grocermon summary --config grocermon.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "log the summary instead of sending it")

	return cmd
}

func runSummary(opts *SummaryOptions, cmd *cobra.Command) error {
	a, err := buildApp(opts.RootOptions, opts.DryRun)
	if err != nil {
		return reportError(opts.RootOptions, cmd, "E_CONFIG", err)
	}

	res, err := a.runner.Daily(cmd.Context())
	if err != nil {
		return reportError(opts.RootOptions, cmd, "E_RUN",
			WrapExitError(ExitFailure, "summary pass failed", err))
	}

	out := formatter(opts.RootOptions, cmd)
	if opts.Format == "json" {
		return out.Success(res)
	}
	return out.Success(fmt.Sprintf("observed %d prices (%d unavailable), summary %s",
		res.Observed, res.Failed, deliveredWord(res.Notified)))
}

func deliveredWord(notified bool) string {
	if notified {
		return "delivered"
	}
	return "not delivered"
}
