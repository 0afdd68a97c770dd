package widget

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileFromPath(t *testing.T) {
	dir := t.TempDir()

	pdf := filepath.Join(dir, "plan.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.7\n"), 0o644))

	f, err := FileFromPath(pdf)
	require.NoError(t, err)
	assert.Equal(t, "plan.pdf", f.Name)
	assert.Equal(t, "application/pdf", f.MIMEType)
	assert.Equal(t, int64(9), f.Size)
	assert.Equal(t, pdf, f.Path)

	rc, err := OpenFromDisk(f)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7\n", string(data))
}

func TestFileFromPath_SniffsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "scan.unknownext")
	require.NoError(t, os.WriteFile(p, []byte("%PDF-1.4 body"), 0o644))

	f, err := FileFromPath(p)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", f.MIMEType)
}

func TestFileFromPath_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := FileFromPath(dir)
	assert.ErrorContains(t, err, "is a directory")

	_, err = FileFromPath(filepath.Join(dir, "missing.pdf"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFilesFromPaths_StopsAtFirstError(t *testing.T) {
	dir := t.TempDir()
	ok := filepath.Join(dir, "a.pdf")
	require.NoError(t, os.WriteFile(ok, []byte("x"), 0o644))

	files, err := FilesFromPaths([]string{ok})
	require.NoError(t, err)
	assert.Len(t, files, 1)

	_, err = FilesFromPaths([]string{ok, filepath.Join(dir, "nope.pdf")})
	assert.Error(t, err)
}
