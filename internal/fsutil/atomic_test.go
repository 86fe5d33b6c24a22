// SPDX-License-Identifier: MIT

package fsutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")

	n, err := WriteAtomic(context.Background(), path, strings.NewReader("%PDF-1.7"), false)
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))

	_, err = WriteAtomic(context.Background(), path, strings.NewReader("other"), false)
	assert.ErrorIs(t, err, ErrExists)

	_, err = WriteAtomic(context.Background(), path, strings.NewReader("other"), true)
	require.NoError(t, err)
	data, _ = os.ReadFile(path)
	assert.Equal(t, "other", string(data))
}

func TestWriteAtomic_FailedCopyLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")

	_, err := WriteAtomic(context.Background(), path, failingReader{}, false)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary file is cleaned up")
}

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "bill.pdf", SafeFilename("bill.pdf", "x"))
	assert.Equal(t, "passwd", SafeFilename("../../etc/passwd", "x"))
	assert.Equal(t, "evil.pdf", SafeFilename(`..\..\evil.pdf`, "x"))
	assert.Equal(t, "hidden", SafeFilename(".hidden", "x"))
	assert.Equal(t, "x", SafeFilename("  ", "x"))
	assert.Equal(t, "x", SafeFilename("..", "x"))
}

func TestConfineJoin(t *testing.T) {
	dir := t.TempDir()

	p, err := ConfineJoin(dir, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.pdf"), p)

	_, err = ConfineJoin(dir, "../a.pdf")
	assert.Error(t, err)

	_, err = ConfineJoin(dir, ".")
	assert.Error(t, err)
}
