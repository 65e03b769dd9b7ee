// Package zip bundles exported analysis files into a single archive.
package zip

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"time"
)

// Entry is one file in the bundle.
type Entry struct {
	Name     string
	Data     []byte
	Modified time.Time
}

// Bundle writes entries, in order, into a deflated archive. Names must be
// unique and non-empty.
func Bundle(entries []Entry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, errors.New("zip: nothing to bundle")
	}
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Name == "" || seen[e.Name] {
			_ = zw.Close()
			return nil, fmt.Errorf("zip: invalid or duplicate entry name %q", e.Name)
		}
		seen[e.Name] = true
		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate, Modified: e.Modified}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			_ = zw.Close()
			return nil, err
		}
		if _, err := w.Write(e.Data); err != nil {
			_ = zw.Close()
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
