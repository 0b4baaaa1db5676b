package cli

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dstanway/grocermon/internal/config"
	"github.com/dstanway/grocermon/internal/endpoint"
	"github.com/dstanway/grocermon/internal/fetch"
	"github.com/dstanway/grocermon/internal/monitor"
	"github.com/dstanway/grocermon/internal/notify"
	"github.com/dstanway/grocermon/internal/scrape"
	"github.com/dstanway/grocermon/internal/snapshot"
)

const colesEndpointCacheFile = "coles_api.txt"

// colesEndpointConfig names the rotating-address source. Discovery mines a
// search-results page: the homepage is a thin shell, the search page is the
// one that server-renders the runtime config carrying the API host.
func colesEndpointConfig() endpoint.Config {
	return endpoint.Config{
		DiscoveryURL: "https://www.coles.com.au/search?q=milk",
		Domain:       "coles.com.au",
		Fallback:     "https://www.coles.com.au",
	}
}

// app is the fully wired process: every component the commands need,
// built once from one config file.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	client   *fetch.Client
	resolver *endpoint.Resolver
	runner   *monitor.Runner
}

// newLogger builds the process logger. Console output goes to stderr so
// JSON command output on stdout stays machine-parseable.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// buildApp loads config, resolves secrets and wires every pipeline stage.
// With dryRun set, or when Telegram credentials are absent, delivery is
// replaced by the logging notifier.
func buildApp(opts *RootOptions, dryRun bool) (*app, error) {
	log := newLogger(opts.Verbose)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	client := fetch.New(fetch.Options{
		Timeout: cfg.Timeout(),
		Logger:  log,
	})

	resolver := endpoint.NewResolver(
		client,
		endpoint.NewFileCache(filepath.Join(cfg.CacheDir, colesEndpointCacheFile)),
		colesEndpointConfig(),
		log,
	)

	sources := []scrape.Source{
		scrape.NewWoolworths(client, scrape.WoolworthsOptions{
			StoreID:  cfg.Woolworths.StoreID,
			Postcode: cfg.Woolworths.Postcode,
			Branch:   cfg.Woolworths.Branch,
			Logger:   log,
		}),
		scrape.NewColes(client, resolver, scrape.ColesOptions{
			StoreID: cfg.Coles.StoreID,
			Branch:  cfg.Coles.Branch,
			Logger:  log,
		}),
		scrape.NewAldi(client, nil, scrape.AldiOptions{
			Categories: cfg.Aldi.Categories,
			Branch:     cfg.Aldi.Branch,
			Logger:     log,
		}),
	}

	var notifier notify.Notifier
	secrets := config.LoadSecrets()
	switch {
	case dryRun:
		notifier = notify.Nop{Log: log}
	case secrets.HasTelegram():
		tg, err := notify.NewTelegram(client, notify.TelegramOptions{
			Token:  secrets.BotToken,
			ChatID: secrets.ChatID,
		})
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "telegram setup failed", err)
		}
		notifier = tg
	default:
		log.Warn().Msg("telegram credentials not set, falling back to dry run")
		notifier = notify.Nop{Log: log}
	}

	return &app{
		cfg:      cfg,
		log:      log,
		client:   client,
		resolver: resolver,
		runner: &monitor.Runner{
			Title:     cfg.Title,
			Basket:    cfg.Basket,
			Sources:   sources,
			Snapshots: snapshot.New(cfg.SnapshotPath),
			Threshold: cfg.DetectThreshold(),
			Notifier:  notifier,
			Log:       log,
		},
	}, nil
}

// formatter builds the output formatter bound to the command's stdout.
func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}
}

// reportError emits the structured error envelope when JSON output is
// selected, then hands the error back for exit-code mapping. Text-mode
// failures print once, on stderr, from main.
func reportError(opts *RootOptions, cmd *cobra.Command, code string, err error) error {
	if opts.Format == "json" {
		_ = formatter(opts, cmd).Error(code, err.Error(), nil)
	}
	return err
}
