// Package workspace creates and tears down the throwaway copy of a
// repository that one processing cycle mutates and tests against. A
// Workspace is owned by the cycle that created it; its lifetime never
// outlives that cycle, under every exit path including panics.
package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Workspace is a scoped, content-only copy of a repository root.
type Workspace struct {
	OriginalRoot string
	Root         string // the temporary copy's root
	closed       bool
}

// Create copies originalRoot's contents into a fresh temporary directory
// under baseTempDir (os.TempDir() if empty) and returns a Workspace
// pointing at the copy. The caller must defer Close to guarantee cleanup.
func Create(originalRoot, baseTempDir string) (*Workspace, error) {
	root, err := os.MkdirTemp(baseTempDir, "noctum-workspace-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace directory: %w", err)
	}

	if err := copyTree(originalRoot, root); err != nil {
		os.RemoveAll(root)
		return nil, fmt.Errorf("copy repository into workspace: %w", err)
	}

	return &Workspace{OriginalRoot: originalRoot, Root: root}, nil
}

// Close removes the workspace directory. Idempotent and safe to call more
// than once (e.g. once explicitly and once via defer).
func (w *Workspace) Close() error {
	if w == nil || w.closed {
		return nil
	}
	w.closed = true
	return os.RemoveAll(w.Root)
}

// ToWorkspacePath translates an absolute path under w.OriginalRoot into
// the corresponding path under w.Root. It is a pure function of
// (w.Root, w.OriginalRoot, path).
func (w *Workspace) ToWorkspacePath(originalPath string) (string, error) {
	return translate(w.OriginalRoot, w.Root, originalPath)
}

// ToOriginalPath translates an absolute path under w.Root back to the
// corresponding path under w.OriginalRoot. Used before persisting any
// Store row: only original paths are ever recorded durably.
func (w *Workspace) ToOriginalPath(workspacePath string) (string, error) {
	return translate(w.Root, w.OriginalRoot, workspacePath)
}

// translate is the pure path-translation function shared by both
// directions: it rebases path from fromRoot onto toRoot.
func translate(fromRoot, toRoot, path string) (string, error) {
	rel, err := filepath.Rel(fromRoot, path)
	if err != nil {
		return "", fmt.Errorf("path %q is not under %q: %w", path, fromRoot, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is not under %q", path, fromRoot)
	}
	return filepath.Join(toRoot, rel), nil
}

// copyTree faithfully copies the content of src into dst, preserving
// regular file permissions and directory structure. Symlinks are
// resolved and copied as regular files to avoid an isolated workspace
// silently reaching outside itself.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		if d.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		}

		if d.Type()&os.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil {
				return err
			}
			return copyFile(resolved, target, 0o644)
		}

		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
