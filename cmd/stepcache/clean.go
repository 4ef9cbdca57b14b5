package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stepcache/stepcache/pkg/cache"
	"github.com/stepcache/stepcache/pkg/config"
	"github.com/stepcache/stepcache/pkg/dockerclient"
	"github.com/stepcache/stepcache/pkg/logging"
	"github.com/stepcache/stepcache/pkg/output"
)

var cleanCacheRepo string

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Prune superseded cache images",
	Long: `Removes intermediate cache images that have been superseded.

For every distinct predecessor image, the first cache image is kept and
later ones sharing that predecessor are removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClean()
	},
}

func init() {
	cleanCmd.Flags().StringVar(&cleanCacheRepo, "cache-repo", config.DefaultCacheRepository, "Repository cache images are tagged under")
}

func runClean() error {
	printer := output.New()

	cli, err := dockerclient.New()
	if err != nil {
		return err
	}
	defer cli.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dockerclient.Ping(ctx, cli); err != nil {
		return err
	}

	removed, err := cache.Prune(ctx, cli, cleanCacheRepo, logging.NewDiscardLogger())
	if err != nil {
		return err
	}

	if len(removed) == 0 {
		printer.Info("No superseded cache images found", "repo", cleanCacheRepo)
		return nil
	}
	for _, ref := range removed {
		printer.Info("removed cache image", "ref", ref)
	}
	printer.Info("cache pruned", "removed", len(removed), "repo", cleanCacheRepo)
	return nil
}
