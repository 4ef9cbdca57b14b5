// Package state persists per-run build records under ~/.stepcache.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// RunRecord captures the outcome of one build run.
type RunRecord struct {
	RunID      string          `json:"run_id"`
	ContextDir string          `json:"context_dir"`
	Tag        string          `json:"tag"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Success    bool            `json:"success"`
	ImageID    string          `json:"image_id,omitempty"`
	Error      string          `json:"error,omitempty"`
	Segments   []SegmentRecord `json:"segments,omitempty"`
}

// SegmentRecord is the outcome of one segment within a run.
type SegmentRecord struct {
	Kind    string `json:"kind"` // "copy" or "plain"
	Tag     string `json:"tag"`
	ImageID string `json:"image_id,omitempty"`
	Cached  bool   `json:"cached"`
}

// CacheHits counts the segments this run resolved without a build.
func (r *RunRecord) CacheHits() int {
	hits := 0
	for _, s := range r.Segments {
		if s.Cached {
			hits++
		}
	}
	return hits
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// BaseDir returns the base stepcache directory (~/.stepcache/).
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".stepcache")
}

// StateDir returns the directory for run records (~/.stepcache/state/).
func StateDir() string {
	return filepath.Join(BaseDir(), "state")
}

// SourceDir returns the directory git build sources are cached under.
func SourceDir() string {
	return filepath.Join(BaseDir(), "sources")
}

// SourcePath returns the cache directory for one git source URL.
func SourcePath(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(SourceDir(), hex.EncodeToString(sum[:])[:12])
}

// recordPath returns the path to one run record file.
func recordPath(runID string) string {
	return filepath.Join(StateDir(), runID+".json")
}

// Save writes a run record.
func Save(record *RunRecord) error {
	if err := os.MkdirAll(StateDir(), 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run record: %w", err)
	}

	if err := os.WriteFile(recordPath(record.RunID), data, 0644); err != nil {
		return fmt.Errorf("writing run record: %w", err)
	}
	return nil
}

// Load reads one run record.
func Load(runID string) (*RunRecord, error) {
	data, err := os.ReadFile(recordPath(runID))
	if err != nil {
		return nil, err
	}

	var record RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parsing run record: %w", err)
	}
	return &record, nil
}

// List returns all run records, newest first. Invalid files are skipped.
func List() ([]RunRecord, error) {
	entries, err := os.ReadDir(StateDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var records []RunRecord
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		record, err := Load(entry.Name()[:len(entry.Name())-5])
		if err != nil {
			continue
		}
		records = append(records, *record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	return records, nil
}

// Latest returns the most recent run record, or nil when none exist.
func Latest() (*RunRecord, error) {
	records, err := List()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}
