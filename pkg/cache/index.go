// Package cache maps content-derived cache keys to previously built images.
package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/image"

	"github.com/stepcache/stepcache/pkg/dockerclient"
)

// shortIDLen is the canonical short form used in cache keys and FROM lines.
const shortIDLen = 12

// ShortID canonicalizes an image ID to its 12-character short form,
// stripping any digest algorithm prefix such as "sha256:".
func ShortID(id string) string {
	if i := strings.IndexByte(id, ':'); i >= 0 {
		id = id[i+1:]
	}
	if len(id) > shortIDLen {
		id = id[:shortIDLen]
	}
	return id
}

// Key derives the cache reference for a copy step from the predecessor image
// and the content digest of the copied files. Identical predecessor, content
// and destination always yield the same key; changing any of the three
// changes it.
func Key(repository, predecessorID, contentDigest string) string {
	if len(contentDigest) > shortIDLen {
		contentDigest = contentDigest[:shortIDLen]
	}
	return fmt.Sprintf("%s:%s-%s", repository, ShortID(predecessorID), contentDigest)
}

// Entry pairs an image reference with the image ID it resolves to.
type Entry struct {
	Ref string
	ID  string
}

// Index is a read-only snapshot of the daemon's tagged images, taken once at
// the start of a run. It is never refreshed mid-run.
type Index struct {
	entries []Entry
}

// NewIndex snapshots the daemon's image listing into a lookup table. When
// enabled is false the index stays empty and every lookup misses.
func NewIndex(ctx context.Context, cli dockerclient.DockerClient, enabled bool) (*Index, error) {
	ix := &Index{}
	if !enabled {
		return ix, nil
	}

	images, err := cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}
	for _, img := range images {
		for _, tag := range img.RepoTags {
			ix.entries = append(ix.entries, Entry{Ref: tag, ID: img.ID})
		}
	}
	return ix, nil
}

// Lookup returns the ID of the image tagged with ref. Untagged references
// also match their ":latest" form. First match wins; listing order is
// whatever the daemon returned.
func (ix *Index) Lookup(ref string) (string, bool) {
	for _, e := range ix.entries {
		if e.Ref == ref || e.Ref == ref+":latest" {
			return e.ID, true
		}
	}
	return "", false
}

// Len returns the number of snapshot entries.
func (ix *Index) Len() int { return len(ix.entries) }
