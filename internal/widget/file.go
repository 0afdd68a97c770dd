// Package widget implements the upload widget: file selection with an
// optional filename predicate, multipart submission to the process endpoint,
// response interpretation, and rendering of the per-file result list.
//
// The widget never touches a terminal or a document directly. Front ends
// implement View and dispatch typed commands to a Widget.
package widget

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
)

// File is a handle to one user-selected file. The widget holds the handle,
// never the contents; bytes are read through an Opener at submission time.
type File struct {
	Name     string // Base name sent to the server
	MIMEType string
	Size     int64
	Path     string // Local path used by the default opener
}

// Opener returns the contents of a selected file.
type Opener func(f File) (io.ReadCloser, error)

// OpenFromDisk is the default Opener.
func OpenFromDisk(f File) (io.ReadCloser, error) {
	return os.Open(f.Path)
}

// sniffLen is the number of bytes http.DetectContentType looks at.
const sniffLen = 512

// FileFromPath stats path and returns a File handle for it.
// The MIME type comes from the extension, falling back to content sniffing.
func FileFromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}

	f := File{
		Name: filepath.Base(path),
		Size: info.Size(),
		Path: path,
	}

	f.MIMEType = mime.TypeByExtension(filepath.Ext(path))
	if f.MIMEType == "" {
		f.MIMEType = sniffMIME(path)
	}
	return f, nil
}

// FilesFromPaths resolves every path, stopping at the first error.
func FilesFromPaths(paths []string) ([]File, error) {
	files := make([]File, 0, len(paths))
	for _, p := range paths {
		f, err := FileFromPath(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func sniffMIME(path string) string {
	fh, err := os.Open(path)
	if err != nil {
		return "application/octet-stream"
	}
	defer fh.Close()

	buf := make([]byte, sniffLen)
	n, _ := io.ReadFull(fh, buf)
	return http.DetectContentType(buf[:n])
}

// names returns the Name of every file, in order.
func names(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}
