// SPDX-License-Identifier: MIT

// Package fsutil writes downloaded documents to disk.
package fsutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/log"
	"github.com/google/renameio/v2"
)

// ErrExists is returned by WriteAtomic when the target exists and overwrite is false.
var ErrExists = errors.New("target file already exists")

// WriteAtomic streams r into path. The data lands in a temporary file next to
// path that is fsynced and renamed into place only after the copy succeeds,
// so readers never observe a partial document.
func WriteAtomic(ctx context.Context, path string, r io.Reader, overwrite bool) (int64, error) {
	logger := log.FromContext(ctx)

	if !overwrite {
		if _, err := os.Lstat(path); err == nil {
			return 0, fmt.Errorf("%w: %s", ErrExists, path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("stat %s: %w", path, err)
		}
	}

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return 0, fmt.Errorf("create pending file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Str("path", path).Msg("cleanup pending file")
		}
	}()

	n, err := io.Copy(pendingFile, r)
	if err != nil {
		return n, fmt.Errorf("write %s: %w", path, err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return n, fmt.Errorf("atomically replace %s: %w", path, err)
	}
	return n, nil
}

// SafeFilename turns a server-provided file name into a single path element.
// Separators and leading dots are dropped so the result cannot escape dir.
func SafeFilename(name, fallback string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimLeft(strings.TrimSpace(name), ".")
	if name == "" || name == "/" {
		return fallback
	}
	return name
}

// ConfineJoin joins dir and name, refusing results outside dir.
func ConfineJoin(dir, name string) (string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	target := filepath.Join(root, name)
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", fmt.Errorf("path %q escapes %s", name, dir)
	}
	return target, nil
}
