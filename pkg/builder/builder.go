// Package builder runs segmented, cache-aware image builds.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/stepcache/stepcache/pkg/cache"
	"github.com/stepcache/stepcache/pkg/config"
	"github.com/stepcache/stepcache/pkg/dockerclient"
	"github.com/stepcache/stepcache/pkg/dockerfile"
	"github.com/stepcache/stepcache/pkg/engine"
	"github.com/stepcache/stepcache/pkg/logging"
)

// Builder orchestrates a segmented build: split the descriptor, build each
// segment against the previous segment's image, reuse cached copy segments.
type Builder struct {
	cli    dockerclient.DockerClient
	engine engine.Engine
	cfg    config.Config
	logger *slog.Logger
}

// New creates a Builder. A nil logger discards build logs.
func New(cli dockerclient.DockerClient, eng engine.Engine, cfg config.Config, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Builder{cli: cli, engine: eng, cfg: cfg, logger: logger}
}

// Run executes one full build of the given context. The descriptor is backed
// up before the first segment and restored on every exit path, including
// build failures and context cancellation.
func (b *Builder) Run(ctx context.Context, opts Options) (*Result, error) {
	contextDir, err := b.resolveSource(opts)
	if err != nil {
		return nil, err
	}

	descriptorPath := filepath.Join(contextDir, b.cfg.Dockerfile)
	content, err := os.ReadFile(descriptorPath)
	if err != nil {
		return nil, fmt.Errorf("reading descriptor: %w", err)
	}

	segments := dockerfile.Split(string(content))
	if len(segments) == 0 {
		return nil, fmt.Errorf("no instructions in %s", descriptorPath)
	}
	b.logger.Info("descriptor split", "path", descriptorPath, "segments", len(segments))

	index, err := cache.NewIndex(ctx, b.cli, !opts.NoCache)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("image snapshot taken", "entries", index.Len())

	guard := NewGuard(descriptorPath, filepath.Join(contextDir, b.cfg.Backup))
	if err := guard.Acquire(); err != nil {
		return nil, err
	}
	defer func() {
		if err := guard.Restore(); err != nil {
			b.logger.Error("restoring descriptor failed", "path", descriptorPath, "error", err)
		}
	}()

	exec := &executor{
		engine:     b.engine,
		index:      index,
		logger:     b.logger,
		contextDir: contextDir,
		descriptor: b.cfg.Dockerfile,
		cacheRepo:  b.cfg.CacheRepo,
	}

	result := &Result{ImageTag: opts.Tag}
	for i, seg := range segments {
		res, err := exec.step(ctx, seg)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i+1, err)
		}
		b.logger.Info("segment done", "step", i+1, "kind", res.Kind, "image", res.ImageID, "cached", res.Cached)
		result.Segments = append(result.Segments, res)
	}

	result.ImageID = exec.lastID
	if opts.Tag != "" {
		if err := b.cli.ImageTag(ctx, exec.lastID, opts.Tag); err != nil {
			return nil, fmt.Errorf("tagging %s: %w", opts.Tag, err)
		}
		b.logger.Info("image tagged", "tag", opts.Tag, "image", exec.lastID)
	}

	if opts.Clean {
		removed, err := cache.Prune(ctx, b.cli, b.cfg.CacheRepo, b.logger)
		if err != nil {
			b.logger.Warn("pruning cache images failed", "error", err)
		} else if len(removed) > 0 {
			b.logger.Info("pruned cache images", "count", len(removed))
		}
	}

	return result, nil
}

// resolveSource picks the build context directory, cloning remote sources
// first when a git URL is given.
func (b *Builder) resolveSource(opts Options) (string, error) {
	if opts.GitURL != "" {
		return CloneOrUpdate(opts.GitURL, opts.GitRef, b.logger)
	}

	dir := opts.ContextDir
	if dir == "" {
		dir = "."
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("build context: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("build context is not a directory: %s", dir)
	}
	return dir, nil
}
