package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stepcache/stepcache/pkg/builder"
	"github.com/stepcache/stepcache/pkg/config"
	"github.com/stepcache/stepcache/pkg/dockerclient"
	"github.com/stepcache/stepcache/pkg/engine"
	"github.com/stepcache/stepcache/pkg/logging"
	"github.com/stepcache/stepcache/pkg/output"
	"github.com/stepcache/stepcache/pkg/state"
	"github.com/stepcache/stepcache/pkg/watch"
)

var (
	buildTag       string
	buildFile      string
	buildBackup    string
	buildCacheRepo string
	buildNoCache   bool
	buildClean     bool
	buildWatch     bool
	buildGitURL    string
	buildGitRef    string
	buildQuiet     bool
	buildVerbose   bool
	buildLogFile   string
)

var buildCmd = &cobra.Command{
	Use:   "build [context]",
	Short: "Build an image incrementally from a Dockerfile",
	Long: `Builds a container image from the given context directory (default ".").

The Dockerfile is split into segments at every ADD/COPY instruction.
Each segment builds on the image produced by the previous one, and copy
segments are tagged with a cache reference derived from the content of
the copied files. Segments whose cache reference already exists as an
image are reused without a build.

The Dockerfile is backed up before the first segment and restored when
the build finishes, fails, or is interrupted. If a leftover backup from
an earlier run exists, the build refuses to start.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contextDir := "."
		if len(args) > 0 {
			contextDir = args[0]
		}
		return runBuild(contextDir)
	},
}

func init() {
	buildCmd.Flags().StringVarP(&buildTag, "tag", "t", "", "Tag for the final image")
	buildCmd.Flags().StringVarP(&buildFile, "file", "f", "", "Dockerfile name within the context (default \"Dockerfile\")")
	buildCmd.Flags().StringVar(&buildBackup, "backup", "", "Backup file name for the Dockerfile (default \"<Dockerfile>.orig\")")
	buildCmd.Flags().StringVar(&buildCacheRepo, "cache-repo", "", "Repository cache images are tagged under (default \""+config.DefaultCacheRepository+"\")")
	buildCmd.Flags().BoolVar(&buildNoCache, "no-cache", false, "Rebuild every segment, ignore cached images")
	buildCmd.Flags().BoolVar(&buildClean, "clean", false, "Prune superseded cache images after the build")
	buildCmd.Flags().BoolVarP(&buildWatch, "watch", "w", false, "Watch the Dockerfile and rebuild on changes")
	buildCmd.Flags().StringVar(&buildGitURL, "git-url", "", "Build from a git repository instead of a local context")
	buildCmd.Flags().StringVar(&buildGitRef, "git-ref", "", "Git branch, tag or commit to build (default HEAD)")
	buildCmd.Flags().BoolVarP(&buildQuiet, "quiet", "q", false, "Suppress progress output (show only final result)")
	buildCmd.Flags().BoolVarP(&buildVerbose, "verbose", "v", false, "Enable debug logging")
	buildCmd.Flags().StringVar(&buildLogFile, "log-file", "", "Write structured logs to this file (rotated)")
}

func runBuild(contextDir string) error {
	absDir, err := filepath.Abs(contextDir)
	if err != nil {
		return fmt.Errorf("resolving context path: %w", err)
	}

	cfg, err := loadBuildConfig(absDir)
	if err != nil {
		return err
	}

	logger := newBuildLogger()

	var printer *output.Printer
	if !buildQuiet {
		printer = output.New()
		printer.Banner(version)
		printer.SetDebug(buildVerbose)
	}

	cli, err := dockerclient.New()
	if err != nil {
		return err
	}
	defer cli.Close()

	// Restore-on-interrupt: cancelling the context aborts the running
	// segment, and the builder's deferred restore puts the Dockerfile back.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dockerclient.Ping(ctx, cli); err != nil {
		return err
	}

	// The backup and any local config file never belong in the image.
	excludes := append([]string{cfg.Backup, config.DefaultFile}, cfg.Excludes...)
	eng := engine.NewDocker(cli, logger, excludes...)
	b := builder.New(cli, eng, cfg, logger)

	opts := builder.Options{
		ContextDir: absDir,
		GitURL:     buildGitURL,
		GitRef:     buildGitRef,
		Tag:        buildTag,
		NoCache:    buildNoCache,
		Clean:      buildClean,
	}

	doBuild := func() error {
		return buildOnce(ctx, b, opts, absDir, printer, logger)
	}

	if err := doBuild(); err != nil {
		return err
	}

	if buildWatch {
		if buildGitURL != "" {
			return fmt.Errorf("--watch requires a local build context")
		}
		w := watch.NewWatcher(filepath.Join(absDir, cfg.Dockerfile), doBuild)
		w.SetLogger(logger)
		if printer != nil {
			printer.Info("watching for changes", "file", cfg.Dockerfile)
		}
		if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}

	return nil
}

// buildOnce runs a single build, records the outcome, and prints a summary.
func buildOnce(ctx context.Context, b *builder.Builder, opts builder.Options, absDir string, printer *output.Printer, logger *slog.Logger) error {
	record := &state.RunRecord{
		RunID:      state.NewRunID(),
		ContextDir: absDir,
		Tag:        opts.Tag,
		StartedAt:  time.Now(),
	}

	if printer != nil {
		printer.Info("starting build", "context", absDir, "tag", opts.Tag)
	}

	result, err := b.Run(ctx, opts)
	record.FinishedAt = time.Now()

	if err != nil {
		record.Error = err.Error()
		saveRecord(record, logger)
		return err
	}

	record.Success = true
	record.ImageID = result.ImageID
	for _, s := range result.Segments {
		record.Segments = append(record.Segments, state.SegmentRecord{
			Kind:    s.Kind,
			Tag:     s.Tag,
			ImageID: s.ImageID,
			Cached:  s.Cached,
		})
	}
	saveRecord(record, logger)

	if printer != nil {
		printer.Section("SEGMENTS")
		var segments []output.SegmentSummary
		for i, s := range result.Segments {
			segments = append(segments, output.SegmentSummary{
				Step:    i + 1,
				Kind:    s.Kind,
				Tag:     s.Tag,
				ImageID: s.ImageID,
				Cached:  s.Cached,
			})
		}
		printer.Segments(segments)
		printer.Println()

		printer.Info("build complete",
			"image", result.ImageID,
			"tag", result.ImageTag,
			"cached", fmt.Sprintf("%d/%d", result.CacheHits(), len(result.Segments)),
			"took", record.FinishedAt.Sub(record.StartedAt).Round(time.Millisecond).String(),
		)
	}

	return nil
}

// loadBuildConfig loads the per-context config file and applies flag overrides.
// Git builds have no local context to read a file from, so they start from
// defaults.
func loadBuildConfig(absDir string) (config.Config, error) {
	var cfg config.Config

	if buildGitURL == "" {
		loaded, err := config.Load(absDir)
		if err != nil {
			return config.Config{}, err
		}
		cfg = *loaded
	} else {
		cfg.SetDefaults()
	}

	if buildFile != "" {
		cfg.Dockerfile = buildFile
		if buildBackup == "" {
			cfg.Backup = buildFile + ".orig"
		}
	}
	if buildBackup != "" {
		cfg.Backup = buildBackup
	}
	if buildCacheRepo != "" {
		cfg.CacheRepo = buildCacheRepo
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newBuildLogger builds the structured logger from the logging flags.
func newBuildLogger() *slog.Logger {
	if buildQuiet && buildLogFile == "" {
		return logging.NewDiscardLogger()
	}

	cfg := logging.DefaultConfig()
	cfg.Component = "build"
	if buildVerbose {
		cfg.Level = slog.LevelDebug
	}
	if buildLogFile != "" {
		cfg.Format = logging.FormatJSON
		cfg.Output = logging.NewFileWriter(buildLogFile)
	}
	return logging.NewStructuredLogger(cfg)
}

func saveRecord(record *state.RunRecord, logger *slog.Logger) {
	if err := state.Save(record); err != nil {
		logger.Warn("saving run record failed", "error", err)
	}
}
