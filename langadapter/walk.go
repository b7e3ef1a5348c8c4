package langadapter

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultSkipDirs are directory names common across languages that never
// contain source worth analyzing: build outputs and VCS metadata.
var defaultSkipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"target":       true,
	"dist":         true,
	"build":        true,
	".cache":       true,
}

// walkFiles returns a deterministic, lexically sorted list of repo-root
// relative paths under root whose relative path or basename matches one of
// globs, skipping
// hidden directories and skipDirs.
func walkFiles(root string, globs []string, skipDirs map[string]bool) ([]string, error) {
	var out []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		name := d.Name()

		if d.IsDir() {
			if strings.HasPrefix(name, ".") || skipDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}

		relSlash := filepath.ToSlash(rel)
		for _, g := range globs {
			if ok, _ := doublestar.Match(g, relSlash); ok {
				out = append(out, relSlash)
				break
			}
			// also match against the bare basename for simple extension globs
			if ok, _ := doublestar.Match(g, name); ok {
				out = append(out, relSlash)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(out)
	return out, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
