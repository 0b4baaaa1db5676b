package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	DryRun bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape the basket, diff against the last snapshot, alert on moves",
		Long: `Run one monitoring pass.

Every basket item is scraped across Woolworths, Coles and ALDI, the
observations are compared against the previous snapshot, qualifying
moves are sent as one Telegram message, and the new snapshot replaces
the old one whether or not the alert was delivered.

Example:
  grocermon run --config grocermon.yaml
  grocermon run --dry-run --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPass(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "log the alert instead of sending it")

	return cmd
}

func runPass(opts *RunOptions, cmd *cobra.Command) error {
	a, err := buildApp(opts.RootOptions, opts.DryRun)
	if err != nil {
		return reportError(opts.RootOptions, cmd, "E_CONFIG", err)
	}

	res, err := a.runner.Run(cmd.Context())
	if err != nil {
		return reportError(opts.RootOptions, cmd, "E_RUN",
			WrapExitError(ExitFailure, "monitoring pass failed", err))
	}

	out := formatter(opts.RootOptions, cmd)
	if opts.Format == "json" {
		return out.Success(res)
	}
	return out.Success(fmt.Sprintf("observed %d prices (%d unavailable), %d change event(s)",
		res.Observed, res.Failed, len(res.Events)))
}
