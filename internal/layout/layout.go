// Package layout assembles a project's node_modules/ tree from the content
// -addressed store: a hardlinked farm of every planned package, plus the
// symlink layers the Node.js module resolver actually walks.
package layout

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/npmyap/yap/internal/registry"
	"github.com/npmyap/yap/internal/resolve"
)

// Assemble builds node_modules under root from plan, reading extracted
// package contents from storeDir. Every stage is idempotent: existing
// files and symlinks at a destination are replaced, while existing farm
// directories are reused.
func Assemble(root, storeDir string, plan resolve.Plan) error {
	nodeModules := filepath.Join(root, "node_modules")
	farmRoot := filepath.Join(nodeModules, ".yap")

	// Stage 1: hardlink farm.
	for _, e := range plan {
		src := filepath.Join(storeDir, registry.Escape(e.Name)+"@"+e.Version)
		dst := filepath.Join(farmRoot, registry.Escape(e.Name)+"@"+e.Version)
		if err := hardlinkTree(src, dst); err != nil {
			return fmt.Errorf("layout: hardlink farm for %s@%s: %w", e.Name, e.Version, err)
		}
	}

	// Stage 2: root symlinks, node_modules/<name> -> .yap/<escaped>@<version>/.
	for _, e := range plan {
		target := filepath.Join(farmRoot, registry.Escape(e.Name)+"@"+e.Version)
		link := filepath.Join(nodeModules, e.Name)
		if err := replaceSymlink(target, link); err != nil {
			return fmt.Errorf("layout: root symlink for %s: %w", e.Name, err)
		}
	}

	// Stage 3: self symlink, node_modules/<name>/node_modules/<name> ->
	// node_modules/<name>/, so a package that requires itself resolves.
	for _, e := range plan {
		target := filepath.Join(nodeModules, e.Name)
		link := filepath.Join(nodeModules, e.Name, "node_modules", e.Name)
		if err := replaceSymlink(target, link); err != nil {
			return fmt.Errorf("layout: self symlink for %s: %w", e.Name, err)
		}
	}

	// Stage 4: dependency symlinks, written through the stage-2 symlink
	// into the hardlink farm directory (load-bearing: this is how a
	// package sees its own nested node_modules/<dep>).
	for _, e := range plan {
		for depName := range e.Dependencies {
			target := filepath.Join(nodeModules, depName)
			link := filepath.Join(nodeModules, e.Name, "node_modules", depName)
			if err := replaceSymlink(target, link); err != nil {
				return fmt.Errorf("layout: dependency symlink %s -> %s: %w", e.Name, depName, err)
			}
		}
	}

	return nil
}

// hardlinkTree mirrors the directory tree at src into dst: directories are
// created normally, regular files become hardlinks sharing an inode with
// the store original. Existing files at the destination are unlinked
// first, making the stage idempotent.
func hardlinkTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return err
		}
		return os.Link(path, target)
	})
}

// replaceSymlink creates a symlink at link pointing to target, removing
// whatever already occupies link first.
func replaceSymlink(target, link string) error {
	if err := os.MkdirAll(filepath.Dir(link), 0o755); err != nil {
		return err
	}
	if err := os.RemoveAll(link); err != nil {
		return err
	}
	return os.Symlink(target, link)
}
