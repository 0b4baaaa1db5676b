package cli

import (
	"github.com/spf13/cobra"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Force bool
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show the Coles API base address currently in use",
		Long: `Resolve the rotating Coles API base address.

Without --force a cached address is returned with no network traffic.
With --force the cache is bypassed, the public page is re-mined, and
the freshly discovered address replaces the cached one.

Example:
  grocermon resolve
  grocermon resolve --force`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "bypass the cache and rediscover")

	return cmd
}

func runResolve(opts *ResolveOptions, cmd *cobra.Command) error {
	a, err := buildApp(opts.RootOptions, true)
	if err != nil {
		return reportError(opts.RootOptions, cmd, "E_CONFIG", err)
	}

	addr, err := a.resolver.Resolve(cmd.Context(), opts.Force)
	if err != nil {
		return reportError(opts.RootOptions, cmd, "E_RESOLVE",
			WrapExitError(ExitFailure, "endpoint resolution failed", err))
	}

	out := formatter(opts.RootOptions, cmd)
	if opts.Format == "json" {
		return out.Success(map[string]string{"api_base": addr})
	}
	return out.Success(addr)
}
