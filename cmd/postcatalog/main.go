// Package main is the entry point for the post catalog. It loads
// configuration, connects to PostgreSQL and Valkey, and runs either the
// HTTP API or one of the maintenance commands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"postcatalog/internal/cache"
	"postcatalog/internal/config"
	"postcatalog/internal/database"
	"postcatalog/internal/store"
)

func main() {
	cmd := &cli.Command{
		Name:   "postcatalog",
		Usage:  "Blog post catalog API with a Valkey read-through cache",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Apply pending database migrations",
				Action: migrate,
			},
			{
				Name:   "seed",
				Usage:  "Insert the initial admin account and category into an empty database",
				Action: seed,
			},
			userCommand,
			{
				Name:  "cache",
				Usage: "Inspect or reset the post cache",
				Commands: []*cli.Command{
					{
						Name:   "flush",
						Usage:  "Drop every cached post",
						Action: flushCache,
					},
					{
						Name:   "log",
						Usage:  "Show recent cache invalidations",
						Action: showCacheLog,
						Flags: []cli.Flag{
							&cli.IntFlag{
								Name:    "limit",
								Aliases: []string{"n"},
								Usage:   "Number of entries to show",
								Value:   20,
							},
						},
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// setup loads configuration and installs the default logger.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	// JSON in production, text everywhere else.
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.Env == config.EnvProduction {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	return cfg, nil
}

func migrate(ctx context.Context, _ *cli.Command) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}
	version, err := database.MigrationVersion(db)
	if err != nil {
		return err
	}
	slog.Info("database migrated", "version", version)
	return nil
}

func seed(ctx context.Context, _ *cli.Command) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}
	return database.Seed(ctx, db)
}

func flushCache(ctx context.Context, _ *cli.Command) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	client, err := cache.ConnectValkey(ctx, cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword, cfg.ValkeyDB)
	if err != nil {
		return err
	}
	defer client.Close()

	n, err := cache.NewPostCache(client, 0).InvalidateAll(ctx)
	if err != nil {
		return err
	}
	slog.Info("post cache flushed", "keys", n)
	return nil
}

func showCacheLog(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := store.NewCacheLogStore(db).RecentEntries(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tENTITY\tID\tACTION")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			e.InvalidatedAt.Format("2006-01-02 15:04:05"), e.EntityType, e.EntityID, e.Action)
	}
	return tw.Flush()
}
