// Package zip streams a set of named entries into a zip archive.
package zip

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Entry is one file of an archive. Open is called lazily so large entries
// are never held in memory.
type Entry struct {
	Filename string
	Modified time.Time
	Open     func() (io.ReadCloser, error)
}

// Write streams entries into w. Names are flattened to their base name and
// deduplicated. Media is already compressed, so entries are stored as-is.
func Write(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	seen := make(map[string]int, len(entries))
	for _, e := range entries {
		name := uniqueName(seen, e.Filename)
		hdr := &zip.FileHeader{Name: name, Method: zip.Store, Modified: e.Modified}
		if strings.HasSuffix(name, ".txt") || strings.HasSuffix(name, ".json") {
			hdr.Method = zip.Deflate
		}
		dst, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("zip: create %s: %w", name, err)
		}
		if err := copyEntry(dst, e); err != nil {
			return fmt.Errorf("zip: write %s: %w", name, err)
		}
	}
	return zw.Close()
}

func copyEntry(dst io.Writer, e Entry) error {
	src, err := e.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(dst, src)
	return err
}

func uniqueName(seen map[string]int, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	n := seen[name]
	seen[name] = n + 1
	if n == 0 {
		return name
	}
	ext := path.Ext(name)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), n+1, ext)
}
