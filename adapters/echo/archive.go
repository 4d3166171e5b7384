package hxnavecho

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io/fs"
)

// SourceArchive packs the regular files of fsys into a gzipped tar archive.
// Entries keep their paths relative to the root of fsys.
func SourceArchive(fsys fs.FS) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		hdr := &tar.Header{
			Name:    path,
			Mode:    0o644,
			Size:    int64(len(data)),
			ModTime: info.ModTime(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		_, err = tw.Write(data)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("hxnavecho: pack sources: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("hxnavecho: pack sources: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("hxnavecho: pack sources: %w", err)
	}
	return buf.Bytes(), nil
}
