package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/docker/docker/api/types/image"
)

func TestPrune_KeepsFirstPerPredecessor(t *testing.T) {
	mock := &mockDockerClient{
		Images: []image.Summary{
			{ID: "sha256:1", RepoTags: []string{"stepcache/cache:aaa-111"}},
			{ID: "sha256:2", RepoTags: []string{"stepcache/cache:aaa-222"}},
			{ID: "sha256:3", RepoTags: []string{"stepcache/cache:bbb-333"}},
			{ID: "sha256:4", RepoTags: []string{"stepcache/cache:aaa-444"}},
		},
	}

	removed, err := Prune(context.Background(), mock, "stepcache/cache", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// aaa-111 and bbb-333 survive; the later aaa images go.
	want := []string{"stepcache/cache:aaa-222", "stepcache/cache:aaa-444"}
	if len(removed) != len(want) {
		t.Fatalf("expected %d removals, got %v", len(want), removed)
	}
	for i := range want {
		if removed[i] != want[i] {
			t.Errorf("removal %d: got %q, want %q", i, removed[i], want[i])
		}
	}
}

func TestPrune_IgnoresOtherRepositories(t *testing.T) {
	mock := &mockDockerClient{
		Images: []image.Summary{
			{ID: "sha256:1", RepoTags: []string{"app:latest"}},
			{ID: "sha256:2", RepoTags: []string{"other/cache:aaa-111"}},
			{ID: "sha256:3", RepoTags: []string{"other/cache:aaa-222"}},
		},
	}

	removed, err := Prune(context.Background(), mock, "stepcache/cache", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(removed) != 0 {
		t.Errorf("expected no removals, got %v", removed)
	}
	if len(mock.RemovedRefs) != 0 {
		t.Errorf("expected no ImageRemove calls, got %v", mock.RemovedRefs)
	}
}

func TestPrune_SkipsMalformedTags(t *testing.T) {
	mock := &mockDockerClient{
		Images: []image.Summary{
			{ID: "sha256:1", RepoTags: []string{"stepcache/cache:noseparator"}},
			{ID: "sha256:2", RepoTags: []string{"stepcache/cache:noseparator"}},
		},
	}

	removed, err := Prune(context.Background(), mock, "stepcache/cache", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(removed) != 0 {
		t.Errorf("expected malformed tags to be skipped, got %v", removed)
	}
}

func TestPrune_RemoveError(t *testing.T) {
	mock := &mockDockerClient{
		Images: []image.Summary{
			{ID: "sha256:1", RepoTags: []string{"stepcache/cache:aaa-111"}},
			{ID: "sha256:2", RepoTags: []string{"stepcache/cache:aaa-222"}},
		},
		ImageRemoveError: errors.New("in use"),
	}

	if _, err := Prune(context.Background(), mock, "stepcache/cache", nil); err == nil {
		t.Fatal("expected error from ImageRemove")
	}
}
