// Package hash computes deterministic content digests for build inputs.
//
// A digest covers the bytes of a file (or every file under a directory, in
// sorted path order) plus the logical destination the content is copied to,
// so the same bytes landing at a different destination hash differently.
package hash

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/opencontainers/go-digest"

	"github.com/stepcache/stepcache/pkg/logging"
)

// chunkSize is the read buffer used when streaming file bytes into the digester.
const chunkSize = 64 * 1024

// Tree digests the file or directory tree at path together with destination.
//
// Directories are hashed by streaming every regular file under them in
// lexicographic path order, which makes the digest independent of the
// filesystem's enumeration order. Any unreadable file fails the whole digest.
func Tree(path, destination string, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = collectFiles(path)
		if err != nil {
			return "", fmt.Errorf("hashing %s: %w", path, err)
		}
	}

	if len(files) > 1 {
		logger.Warn("hashing a directory tree, this can be slow", "path", path, "files", len(files))
	}

	digester := digest.SHA256.Digester()
	buf := make([]byte, chunkSize)
	for _, f := range files {
		if err := digestFile(digester.Hash(), f, buf); err != nil {
			return "", err
		}
	}
	if _, err := digester.Hash().Write([]byte(destination)); err != nil {
		return "", fmt.Errorf("hashing destination %q: %w", destination, err)
	}

	return digester.Digest().Encoded(), nil
}

// collectFiles returns the sorted list of regular files under dir.
func collectFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// digestFile streams one file's bytes into w in chunkSize reads.
func digestFile(w io.Writer, path string, buf []byte) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("hashing %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.CopyBuffer(w, f, buf); err != nil {
		return fmt.Errorf("hashing %s: %w", path, err)
	}
	return nil
}
