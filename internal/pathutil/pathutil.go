// Package pathutil normalizes file paths sent by UI clients into the
// repository-relative form git lfs reports in its lock listings.
package pathutil

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrOutsideRepository is returned for paths that resolve outside the repository root.
var ErrOutsideRepository = errors.New("path is outside the repository")

// RepoRelative converts path to the slash-separated form relative to repo.
// Absolute paths must live under repo; relative paths are taken as already
// relative to it.
//
// Examples (repo = /work/game):
//
//	/work/game/art/tex.png → art/tex.png
//	art//tex.png           → art/tex.png
//	art/../tex.png         → tex.png
//	../other/tex.png       → ErrOutsideRepository
func RepoRelative(repo, path string) (string, error) {
	rel := filepath.Clean(path)
	if filepath.IsAbs(rel) {
		r, err := filepath.Rel(filepath.Clean(repo), rel)
		if err != nil {
			return "", ErrOutsideRepository
		}
		rel = r
	}

	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", ErrOutsideRepository
	}
	return rel, nil
}
