// Package scan lists the audio files of a directory.
package scan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrDirNotFound is returned when the input directory does not exist or is
// not a directory.
var ErrDirNotFound = errors.New("scan: input directory not found")

// AudioFile is one candidate file discovered by Scan.
type AudioFile struct {
	Path string // full path
	Name string // base name, used as the output row key
	Ext  string // matched suffix, e.g. ".wav"
}

// Scan returns the entries of dir whose name ends with one of exts.
// Matching is case-sensitive on the literal suffix. Directories are
// skipped. The result keeps the directory listing order.
func Scan(dir string, exts []string) ([]AudioFile, error) {
	if err := CheckDir(dir); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan: read %s: %w", dir, err)
	}

	var files []AudioFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext, ok := matchExt(e.Name(), exts)
		if !ok {
			continue
		}
		files = append(files, AudioFile{
			Path: filepath.Join(dir, e.Name()),
			Name: e.Name(),
			Ext:  ext,
		})
	}
	return files, nil
}

// CheckDir reports ErrDirNotFound when dir is missing or not a directory.
func CheckDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrDirNotFound, dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrDirNotFound, dir)
	}
	return nil
}

func matchExt(name string, exts []string) (string, bool) {
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return ext, true
		}
	}
	return "", false
}
