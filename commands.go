package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MGallo-Code/obol/internal/config"
	"github.com/MGallo-Code/obol/internal/shopline"
	"github.com/MGallo-Code/obol/internal/store"
	"github.com/spf13/cobra"
)

// newRootCmd builds the obol CLI. With no subcommand it serves.
func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "obol",
		Short: "SHOPLINE app install and OAuth callback service",
		Long: `obol verifies signed install requests from the SHOPLINE admin, redirects merchants
to the authorization page, and exchanges the returned code for an access token.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return config.LoadDotEnv(envFile)
		},
		RunE: runServe,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment (missing file is ignored)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			Args:  cobra.NoArgs,
			RunE:  runServe,
		},
		newSignCmd(),
		newMigrateCmd(),
		newEventsCmd(),
	)
	return root
}

func runServe(_ *cobra.Command, _ []string) error {
	// Load config first so we can set log level
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	// Cancel ctx on SIGINT/SIGTERM; run() shuts down when ctx is done.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg, nil, nil)
}

// newSignCmd signs a query the way the platform does. Handy for crafting
// install links against a local server.
func newSignCmd() *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "sign key=value...",
		Short: "Print the signed query string for the given parameters",
		Example: `  obol sign appkey=key1 handle=shop1 timestamp=1700000000000
  obol sign --secret s3cret handle=shop1 code=abc`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("APP_SECRET")
			}
			if secret == "" {
				return fmt.Errorf("%w: --secret or APP_SECRET required", config.ErrConfigurationMissing)
			}
			params, err := parseParams(args)
			if err != nil {
				return err
			}
			params.Set(shopline.SignParam, shopline.SignQuery(params, secret))
			fmt.Fprintln(cmd.OutOrStdout(), params.Encode())
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "app secret (defaults to APP_SECRET)")
	return cmd
}

// parseParams turns key=value args into query values. A sign argument is dropped.
func parseParams(args []string) (url.Values, error) {
	params := url.Values{}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid parameter %q: want key=value", arg)
		}
		if k == shopline.SignParam {
			continue
		}
		params.Add(k, v)
	}
	return params, nil
}

// newMigrateCmd applies the audit trail migrations and exits.
func newMigrateCmd() *cobra.Command {
	var databaseURL string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending audit trail migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
			if databaseURL == "" {
				return fmt.Errorf("%w: --database-url or DATABASE_URL required", config.ErrConfigurationMissing)
			}
			ps, err := openAuditStore(cmd.Context(), databaseURL)
			if err != nil {
				return err
			}
			ps.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "migrations up to date")
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "Postgres URL (defaults to DATABASE_URL)")
	return cmd
}

// newEventsCmd prints or purges the audit trail for one store.
func newEventsCmd() *cobra.Command {
	var (
		databaseURL string
		limit       int
		purge       bool
	)
	cmd := &cobra.Command{
		Use:   "events <handle>",
		Short: "Print a store's install events as JSON lines, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
			if databaseURL == "" {
				return fmt.Errorf("%w: --database-url or DATABASE_URL required", config.ErrConfigurationMissing)
			}
			handle := args[0]
			if !shopline.ValidHandle(handle) {
				return fmt.Errorf("invalid handle %q", handle)
			}
			ps, err := store.NewPostgresStore(cmd.Context(), databaseURL)
			if err != nil {
				return err
			}
			defer ps.Close()

			if purge {
				n, err := ps.DeleteEvents(cmd.Context(), handle)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d events for %s\n", n, handle)
				return nil
			}

			events, err := ps.ListEvents(cmd.Context(), handle, limit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, ev := range events {
				if err := enc.Encode(ev); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "Postgres URL (defaults to DATABASE_URL)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum events to print")
	cmd.Flags().BoolVar(&purge, "purge", false, "delete the store's events instead of printing them")
	return cmd
}
