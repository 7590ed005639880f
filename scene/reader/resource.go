// Package reader loads mesh geometry from Wavefront OBJ resources.
package reader

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// Resource is a readable mesh source backed by a local file or a
// remote URL.
type Resource struct {
	io.ReadCloser

	path string
}

// Path returns the location the resource was opened from.
func (r *Resource) Path() string {
	return r.path
}

// Open creates a resource from a local path or an http(s) URL.
func Open(path string) (*Resource, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		res, err := http.Get(path)
		if err != nil {
			return nil, fmt.Errorf("reader: fetch %s: %v", path, err)
		}
		if res.StatusCode != http.StatusOK {
			res.Body.Close()
			return nil, fmt.Errorf("reader: fetch %s: status %d", path, res.StatusCode)
		}
		return &Resource{ReadCloser: res.Body, path: path}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reader: open %s: %v", path, err)
	}
	return &Resource{ReadCloser: f, path: path}, nil
}
