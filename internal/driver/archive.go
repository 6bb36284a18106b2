package driver

import (
	"archive/tar"
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// archiveKind sniffs the archive format from its content, since download
// URLs do not reliably carry an extension.
func archiveKind(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect archive type: %w", err)
	}
	for m := mt; m != nil; m = m.Parent() {
		for _, kind := range []string{"application/zip", "application/gzip", "application/zstd", "application/x-tar"} {
			if m.Is(kind) {
				return kind, nil
			}
		}
	}
	return "", fmt.Errorf("unsupported archive type %s", mt.String())
}

// entryMatches reports whether an archive entry is the executable, at any
// nesting depth.
func entryMatches(entry, name string) bool {
	entry = strings.TrimPrefix(filepath.ToSlash(entry), "./")
	ok, err := doublestar.Match("**/"+name, entry)
	return err == nil && ok
}

// extractEntry copies the single entry whose base name is name into w.
func extractEntry(archivePath, name string, w io.Writer) error {
	kind, err := archiveKind(archivePath)
	if err != nil {
		return err
	}
	if kind == "application/zip" {
		return extractZipEntry(archivePath, name, w)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	switch kind {
	case "application/gzip":
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	case "application/zstd":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("open zstd: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	return extractTarEntry(r, name, w)
}

func extractZipEntry(archivePath, name string, w io.Writer) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !entryMatches(f.Name, name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", f.Name, err)
		}
		_, err = io.Copy(w, rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("extract %s: %w", f.Name, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrEntryNotFound, name)
}

func extractTarEntry(r io.Reader, name string, w io.Writer) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %s", ErrEntryNotFound, name)
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg || !entryMatches(hdr.Name, name) {
			continue
		}
		if _, err := io.Copy(w, tr); err != nil {
			return fmt.Errorf("extract %s: %w", hdr.Name, err)
		}
		return nil
	}
}
