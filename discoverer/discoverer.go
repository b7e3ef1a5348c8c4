// Package discoverer turns a filesystem root into a list of projects so
// the Orchestrator knows which toolchain to run, and where, for each one.
package discoverer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
)

// ProjectType classifies a discovered project relative to any workspace
// it participates in.
type ProjectType string

const (
	Standalone      ProjectType = "standalone"
	WorkspaceRoot   ProjectType = "workspace_root"
	WorkspaceMember ProjectType = "workspace_member"
)

// Project is one buildable/testable unit discovered under a repository
// root.
type Project struct {
	Root         string // absolute path to the project directory
	RelativePath string // slash-separated path relative to the repository root
	Language     string // langadapter.Adapter.Name(), e.g. "system", "web"
	Name         string
	ProjectType  ProjectType
}

var skipDirNames = map[string]bool{
	".git": true, "node_modules": true, "target": true, "dist": true, "build": true,
}

// Discover walks repoRoot for Cargo.toml and package.json manifests and
// returns every project found, deduplicated by RelativePath. Workspace
// members (expanded from a root manifest's member globs) always win over
// a standalone classification discovered by the tree walk; a workspace
// root with its own package is emitted as both root and package.
func Discover(repoRoot string) ([]Project, error) {
	seen := make(map[string]Project)

	manifestDirs, err := findManifestDirs(repoRoot)
	if err != nil {
		return nil, err
	}

	for _, dir := range manifestDirs {
		if err := discoverCargoAt(repoRoot, dir, seen); err != nil {
			return nil, err
		}
		if err := discoverNodeAt(repoRoot, dir, seen); err != nil {
			return nil, err
		}
	}

	out := make([]Project, 0, len(seen))
	for _, p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelativePath < out[j].RelativePath })
	return out, nil
}

// findManifestDirs returns every directory under root (root included)
// containing a Cargo.toml or package.json, skipping hidden and build
// output directories.
func findManifestDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirNames[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == "Cargo.toml" || d.Name() == "package.json" {
			dirs = append(dirs, filepath.Dir(path))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(dirs)
	return dedupe(dirs), nil
}

func dedupe(in []string) []string {
	out := in[:0]
	var last string
	for i, s := range in {
		if i == 0 || s != last {
			out = append(out, s)
			last = s
		}
	}
	return out
}

func relPath(repoRoot, dir string) (string, error) {
	rel, err := filepath.Rel(repoRoot, dir)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// record adds p to seen, unless p would overwrite an existing
// WorkspaceMember classification of the same path — member status wins.
func record(seen map[string]Project, p Project) {
	existing, ok := seen[p.RelativePath]
	if !ok {
		seen[p.RelativePath] = p
		return
	}
	if existing.ProjectType == WorkspaceMember {
		return
	}
	seen[p.RelativePath] = p
}

// cargoManifest is the subset of Cargo.toml this package reads.
type cargoManifest struct {
	Package *struct {
		Name string `toml:"name"`
	} `toml:"package"`
	Workspace *struct {
		Members []string `toml:"members"`
	} `toml:"workspace"`
}

func discoverCargoAt(repoRoot, dir string, seen map[string]Project) error {
	manifestPath := filepath.Join(dir, "Cargo.toml")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var manifest cargoManifest
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return err
	}

	rel, err := relPath(repoRoot, dir)
	if err != nil {
		return err
	}

	isWorkspaceRoot := manifest.Workspace != nil
	hasOwnPackage := manifest.Package != nil

	switch {
	case isWorkspaceRoot && hasOwnPackage:
		record(seen, Project{Root: dir, RelativePath: rel, Language: "system", Name: manifest.Package.Name, ProjectType: WorkspaceRoot})
	case isWorkspaceRoot:
		record(seen, Project{Root: dir, RelativePath: rel, Language: "system", Name: filepath.Base(dir), ProjectType: WorkspaceRoot})
	case hasOwnPackage:
		record(seen, Project{Root: dir, RelativePath: rel, Language: "system", Name: manifest.Package.Name, ProjectType: Standalone})
	}

	if manifest.Workspace == nil {
		return nil
	}

	memberDirs, err := expandMemberGlobs(dir, manifest.Workspace.Members)
	if err != nil {
		return err
	}
	for _, memberDir := range memberDirs {
		mdata, err := os.ReadFile(filepath.Join(memberDir, "Cargo.toml"))
		if err != nil {
			continue
		}
		var mm cargoManifest
		if err := toml.Unmarshal(mdata, &mm); err != nil || mm.Package == nil {
			continue
		}
		mrel, err := relPath(repoRoot, memberDir)
		if err != nil {
			return err
		}
		seen[mrel] = Project{Root: memberDir, RelativePath: mrel, Language: "system", Name: mm.Package.Name, ProjectType: WorkspaceMember}
	}
	return nil
}

// expandMemberGlobs resolves Cargo/npm-style workspace member globs
// ("crates/*", "packages/*") against root into existing directories.
func expandMemberGlobs(root string, globs []string) ([]string, error) {
	var out []string
	for _, g := range globs {
		matches, err := doublestar.Glob(os.DirFS(root), g)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			full := filepath.Join(root, m)
			if info, err := os.Stat(full); err == nil && info.IsDir() {
				out = append(out, full)
			}
		}
	}
	return out, nil
}

// packageJSON is the subset of package.json this package reads.
type packageJSON struct {
	Name       string   `json:"name"`
	Workspaces []string `json:"workspaces"`
}

func discoverNodeAt(repoRoot, dir string, seen map[string]Project) error {
	manifestPath := filepath.Join(dir, "package.json")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var manifest packageJSON
	if err := json.Unmarshal(data, &manifest); err != nil {
		return err
	}

	rel, err := relPath(repoRoot, dir)
	if err != nil {
		return err
	}

	name := manifest.Name
	if name == "" {
		name = filepath.Base(dir)
	}

	if len(manifest.Workspaces) == 0 {
		record(seen, Project{Root: dir, RelativePath: rel, Language: "web", Name: name, ProjectType: Standalone})
		return nil
	}

	record(seen, Project{Root: dir, RelativePath: rel, Language: "web", Name: name, ProjectType: WorkspaceRoot})

	memberDirs, err := expandMemberGlobs(dir, manifest.Workspaces)
	if err != nil {
		return err
	}
	for _, memberDir := range memberDirs {
		mdata, err := os.ReadFile(filepath.Join(memberDir, "package.json"))
		if err != nil {
			continue
		}
		var mm packageJSON
		if err := json.Unmarshal(mdata, &mm); err != nil {
			continue
		}
		mrel, err := relPath(repoRoot, memberDir)
		if err != nil {
			return err
		}
		mname := mm.Name
		if mname == "" {
			mname = filepath.Base(memberDir)
		}
		seen[mrel] = Project{Root: memberDir, RelativePath: mrel, Language: "web", Name: mname, ProjectType: WorkspaceMember}
	}
	return nil
}
