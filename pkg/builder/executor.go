package builder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/stepcache/stepcache/pkg/cache"
	"github.com/stepcache/stepcache/pkg/dockerfile"
	"github.com/stepcache/stepcache/pkg/engine"
	"github.com/stepcache/stepcache/pkg/hash"
)

// executor builds segments one at a time, threading the image ID of each
// step into the FROM line of the next. lastID is empty only before the first
// step, where the segment's own FROM line takes over.
type executor struct {
	engine engine.Engine
	index  *cache.Index
	logger *slog.Logger

	contextDir string
	descriptor string // filename relative to contextDir
	cacheRepo  string

	lastID string
}

// step builds one segment and returns its outcome.
func (e *executor) step(ctx context.Context, seg dockerfile.Segment) (SegmentResult, error) {
	if seg.IsCopy() {
		return e.copyStep(ctx, seg)
	}
	return e.plainStep(ctx, seg)
}

// plainStep builds an untagged image from a run of ordinary instructions.
func (e *executor) plainStep(ctx context.Context, seg dockerfile.Segment) (SegmentResult, error) {
	id, err := e.build(ctx, seg, "")
	if err != nil {
		return SegmentResult{}, err
	}
	return SegmentResult{Kind: "plain", ImageID: id}, nil
}

// copyStep builds a single ADD/COPY instruction under a content-derived
// cache tag, or reuses a previously built image when the tag already exists.
func (e *executor) copyStep(ctx context.Context, seg dockerfile.Segment) (SegmentResult, error) {
	if e.lastID == "" {
		return SegmentResult{}, fmt.Errorf("%s %s: copy instruction before any buildable step", seg.Copy.Source, seg.Copy.Dest)
	}

	digest, err := hash.Tree(filepath.Join(e.contextDir, seg.Copy.Source), seg.Copy.Dest, e.logger)
	if err != nil {
		return SegmentResult{}, fmt.Errorf("hashing %s: %w", seg.Copy.Source, err)
	}

	key := cache.Key(e.cacheRepo, e.lastID, digest)

	if id, ok := e.index.Lookup(key); ok {
		e.logger.Info("cache hit", "ref", key, "image", id)
		e.lastID = cache.ShortID(id)
		return SegmentResult{Kind: "copy", Tag: key, ImageID: id, Cached: true}, nil
	}

	id, err := e.build(ctx, seg, key)
	if err != nil {
		return SegmentResult{}, err
	}
	return SegmentResult{Kind: "copy", Tag: key, ImageID: id}, nil
}

// build renders the segment over the descriptor and hands it to the engine.
func (e *executor) build(ctx context.Context, seg dockerfile.Segment, tag string) (string, error) {
	content := seg.Render(e.lastID)
	path := filepath.Join(e.contextDir, e.descriptor)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing descriptor: %w", err)
	}

	id, err := e.engine.Build(ctx, e.contextDir, e.descriptor, tag)
	if err != nil {
		return "", err
	}
	e.lastID = cache.ShortID(id)
	return id, nil
}
