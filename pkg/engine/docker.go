package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/pkg/archive"

	"github.com/stepcache/stepcache/pkg/dockerclient"
	"github.com/stepcache/stepcache/pkg/logging"
)

// Docker builds images through the Docker Engine API.
type Docker struct {
	cli      dockerclient.DockerClient
	logger   *slog.Logger
	excludes []string
}

// NewDocker creates a Docker engine. extraExcludes are context patterns
// dropped on top of .dockerignore; the caller passes the descriptor backup
// filename here so it never leaks into the build context.
func NewDocker(cli dockerclient.DockerClient, logger *slog.Logger, extraExcludes ...string) *Docker {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Docker{cli: cli, logger: logger, excludes: extraExcludes}
}

// Build tars the context directory, runs the build, and returns the produced
// image ID parsed from the streamed engine output.
func (d *Docker) Build(ctx context.Context, contextDir, dockerfile, tag string) (string, error) {
	d.logger.Info("building image", "tag", tag)

	dockerfilePath := filepath.Join(contextDir, dockerfile)
	if _, err := os.Stat(dockerfilePath); err != nil {
		return "", fmt.Errorf("dockerfile not found at %s: %w", dockerfilePath, err)
	}

	buildContext, err := archive.TarWithOptions(contextDir, &archive.TarOptions{
		ExcludePatterns: d.excludePatterns(contextDir),
	})
	if err != nil {
		return "", fmt.Errorf("creating build context: %w", err)
	}
	defer buildContext.Close()

	buildOpts := types.ImageBuildOptions{
		Dockerfile: dockerfile,
		Remove:     true, // Remove intermediate containers
	}
	if tag != "" {
		buildOpts.Tags = []string{tag}
	}

	resp, err := d.cli.ImageBuild(ctx, buildContext, buildOpts)
	if err != nil {
		return "", fmt.Errorf("building image: %w", err)
	}
	defer resp.Body.Close()

	imageID, err := scanBuildOutput(resp.Body, d.logger)
	if err != nil {
		return "", err
	}

	d.logger.Info("built image", "tag", tag, "id", imageID)
	return imageID, nil
}

// excludePatterns returns patterns to exclude from the build context.
func (d *Docker) excludePatterns(contextDir string) []string {
	patterns := []string{".git"}
	patterns = append(patterns, d.excludes...)

	// Honor .dockerignore
	dockerignore := filepath.Join(contextDir, ".dockerignore")
	if data, err := os.ReadFile(dockerignore); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "#") {
				patterns = append(patterns, line)
			}
		}
	}

	return patterns
}
