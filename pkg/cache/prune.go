package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docker/docker/api/types/image"

	"github.com/stepcache/stepcache/pkg/dockerclient"
	"github.com/stepcache/stepcache/pkg/logging"
)

// Prune removes superseded intermediate cache images. Cache tags embed the
// predecessor image ID; for every distinct predecessor the first image the
// daemon lists survives and every later one sharing that predecessor is
// removed. Listing order is the daemon's, so this is an approximate prune
// rather than an exhaustive one.
func Prune(ctx context.Context, cli dockerclient.DockerClient, repository string, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}

	images, err := cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}

	prefix := repository + ":"
	seen := make(map[string]bool)
	var removed []string

	for _, img := range images {
		for _, tag := range img.RepoTags {
			if !strings.HasPrefix(tag, prefix) {
				continue
			}
			pred := predecessor(tag[len(prefix):])
			if pred == "" {
				continue
			}
			if !seen[pred] {
				seen[pred] = true
				continue
			}
			if _, err := cli.ImageRemove(ctx, tag, image.RemoveOptions{}); err != nil {
				return removed, fmt.Errorf("removing cache image %s: %w", tag, err)
			}
			logger.Info("removed cache image", "ref", tag)
			removed = append(removed, tag)
		}
	}
	return removed, nil
}

// predecessor extracts the predecessor component from a cache tag of the
// form <predecessor>-<digest>.
func predecessor(tag string) string {
	i := strings.IndexByte(tag, '-')
	if i <= 0 {
		return ""
	}
	return tag[:i]
}
