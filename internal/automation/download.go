// SPDX-License-Identifier: MIT

package automation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/fsutil"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/log"
)

// DownloadOptions control where and what Download writes.
type DownloadOptions struct {
	Dir       string
	Archived  bool
	Overwrite bool
}

// Download saves documents as <dir>/<id><ext>, where the extension comes
// from the served file name and defaults to ".pdf". Files are written
// atomically; dir is created when missing.
func (r *Runner) Download(ctx context.Context, ids []int, opts DownloadOptions) ([]string, error) {
	ctx = log.ContextWithTask(ctx, TaskDownload)
	logger := r.logger(ctx)
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	paths := make([]string, 0, len(ids))
	for _, id := range ids {
		path, n, err := r.downloadOne(ctx, id, dir, opts)
		if err != nil {
			return paths, err
		}
		logger.Info().Int(log.FieldDocumentID, id).Str("path", path).Int64("bytes", n).Msg("document downloaded")
		paths = append(paths, path)
	}
	return paths, nil
}

func (r *Runner) downloadOne(ctx context.Context, id int, dir string, opts DownloadOptions) (string, int64, error) {
	dl, err := r.session.DownloadDocument(ctx, id, !opts.Archived)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = dl.Body.Close() }()

	ext := filepath.Ext(fsutil.SafeFilename(dl.Filename, ""))
	if ext == "" {
		ext = ".pdf"
	}
	path, err := fsutil.ConfineJoin(dir, strconv.Itoa(id)+ext)
	if err != nil {
		return "", 0, err
	}

	n, err := fsutil.WriteAtomic(ctx, path, dl.Body, opts.Overwrite)
	if err != nil {
		return "", n, fmt.Errorf("save document %d: %w", id, err)
	}
	return path, n, nil
}
