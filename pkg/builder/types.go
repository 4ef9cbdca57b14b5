package builder

// Options control a single build run.
type Options struct {
	// ContextDir is the local build context. Ignored when GitURL is set.
	ContextDir string

	// GitURL builds from a remote repository instead of a local directory.
	GitURL string
	// GitRef is the branch, tag or commit to check out. Empty means HEAD.
	GitRef string

	// Tag is the final image tag. Empty leaves the last image untagged.
	Tag string

	// NoCache skips cache lookups so every segment is rebuilt.
	NoCache bool
	// Clean prunes superseded cache images after the build.
	Clean bool
}

// SegmentResult records the outcome of one build segment.
type SegmentResult struct {
	Kind    string // "copy" or "plain"
	Tag     string // cache tag, empty for untagged segments
	ImageID string
	Cached  bool
}

// Result contains the outcome of a build run.
type Result struct {
	ImageID  string
	ImageTag string
	Segments []SegmentResult
}

// CacheHits counts segments satisfied from cache.
func (r *Result) CacheHits() int {
	n := 0
	for _, s := range r.Segments {
		if s.Cached {
			n++
		}
	}
	return n
}
