// Package decoder finds and runs the external ffmpeg executable used to
// decode compressed audio formats.
package decoder

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotFound is returned when none of the candidate paths is an existing
// regular file.
var ErrNotFound = errors.New("decoder: ffmpeg not found")

// Candidates builds the ordered search list: the value of envVar first
// (when set), then paths. Empty entries are dropped.
func Candidates(envVar string, paths []string) []string {
	out := make([]string, 0, len(paths)+1)
	if envVar != "" {
		if v := strings.TrimSpace(os.Getenv(envVar)); v != "" {
			out = append(out, v)
		}
	}
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Locate returns the first candidate that exists as a regular file.
func Locate(candidates []string) (string, error) {
	for _, p := range candidates {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w (searched: %s)", ErrNotFound, strings.Join(candidates, ", "))
}
