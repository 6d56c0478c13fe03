package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/npmyap/yap/internal/resolve"
)

func writeStorePackage(t *testing.T, storeDir, key, file, contents string) {
	t.Helper()
	dir := filepath.Join(storeDir, key)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, file), []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestAssembleSingleNoDeps(t *testing.T) {
	root := t.TempDir()
	storeDir := t.TempDir()
	writeStorePackage(t, storeDir, "chalk@5.2.0", "index.js", "x")

	plan := resolve.Plan{{Name: "chalk", Version: "5.2.0"}}
	if err := Assemble(root, storeDir, plan); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	link := filepath.Join(root, "node_modules", "chalk")
	info, err := os.Lstat(link)
	if err != nil {
		t.Fatalf("Lstat node_modules/chalk: %v", err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Fatalf("node_modules/chalk is not a symlink")
	}

	b, err := os.ReadFile(filepath.Join(link, "index.js"))
	if err != nil || string(b) != "x" {
		t.Fatalf("reading through symlink: %q, %v", b, err)
	}

	// Stage 1 hardlink: store file and farm file share an inode.
	storeInfo, _ := os.Stat(filepath.Join(storeDir, "chalk@5.2.0", "index.js"))
	farmInfo, _ := os.Stat(filepath.Join(root, "node_modules", ".yap", "chalk@5.2.0", "index.js"))
	if !os.SameFile(storeInfo, farmInfo) {
		t.Errorf("farm file does not share inode with store file")
	}

	// Stage 3 self symlink.
	if _, err := os.Lstat(filepath.Join(root, "node_modules", "chalk", "node_modules", "chalk")); err != nil {
		t.Errorf("missing self symlink: %v", err)
	}
}

func TestAssembleDependencySymlink(t *testing.T) {
	root := t.TempDir()
	storeDir := t.TempDir()
	writeStorePackage(t, storeDir, "a@1.0.0", "index.js", "a")
	writeStorePackage(t, storeDir, "b@1.1.0", "index.js", "b")

	plan := resolve.Plan{
		{Name: "b", Version: "1.1.0"},
		{Name: "a", Version: "1.0.0", Dependencies: map[string]string{"b": "^1"}},
	}
	if err := Assemble(root, storeDir, plan); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	nested := filepath.Join(root, "node_modules", "a", "node_modules", "b")
	b, err := os.ReadFile(filepath.Join(nested, "index.js"))
	if err != nil {
		t.Fatalf("reading through nested dependency symlink: %v", err)
	}
	if string(b) != "b" {
		t.Errorf("nested symlink resolves to wrong content: %q", b)
	}
}

func TestAssembleIdempotent(t *testing.T) {
	root := t.TempDir()
	storeDir := t.TempDir()
	writeStorePackage(t, storeDir, "chalk@5.2.0", "index.js", "x")
	plan := resolve.Plan{{Name: "chalk", Version: "5.2.0"}}

	if err := Assemble(root, storeDir, plan); err != nil {
		t.Fatalf("first Assemble: %v", err)
	}
	if err := Assemble(root, storeDir, plan); err != nil {
		t.Fatalf("second Assemble: %v", err)
	}
}
