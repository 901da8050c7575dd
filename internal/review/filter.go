package review

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/qreviewer/qrev/internal/model"
)

// FilterFiles keeps the file entries whose paths match at least one
// include glob and no exclude glob. Empty include means include all.
func FilterFiles(files []model.FilePatch, include, exclude []string) []model.FilePatch {
	out := make([]model.FilePatch, 0, len(files))
	for _, f := range files {
		if !matchAny(include, f.Path, true) {
			continue
		}
		if matchAny(exclude, f.Path, false) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func matchAny(patterns []string, path string, emptyMatches bool) bool {
	if len(patterns) == 0 {
		return emptyMatches
	}
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, path); err == nil && ok {
			return true
		}
	}
	return false
}
