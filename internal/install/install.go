// Package install orchestrates a full run: load the lockfile, or resolve
// and persist the fresh plan to the lockfile for the next run; then
// download and extract every planned package and assemble node_modules.
package install

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/npmyap/yap/internal/layout"
	"github.com/npmyap/yap/internal/lockfile"
	"github.com/npmyap/yap/internal/registry"
	"github.com/npmyap/yap/internal/resolve"
	"github.com/npmyap/yap/internal/store"
)

// DefaultConcurrency bounds the download stage's worker pool.
const DefaultConcurrency = 10

// Options configures a run.
type Options struct {
	// Root is the project directory: package.json, yap.lock and
	// node_modules/ all live here.
	Root string
	// StoreDir is the content-addressed store; defaults to
	// "<Root>/.yap_store" when empty.
	StoreDir string
	// Concurrency bounds the download stage's worker pool; defaults to
	// DefaultConcurrency when zero.
	Concurrency int
	// Progress, if set, is called once per completed download.
	Progress func(done, total int)
}

// Summary reports what a run did.
type Summary struct {
	PackageCount int
	UsedLockfile bool
}

// Run executes one full install in opts.Root.
func Run(ctx context.Context, client *registry.Client, roots map[string]string, opts Options) (Summary, error) {
	storeDir := opts.StoreDir
	if storeDir == "" {
		storeDir = filepath.Join(opts.Root, ".yap_store")
	}
	concurrency := opts.Concurrency
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	lockPath := filepath.Join(opts.Root, "yap.lock")

	plan, usedLockfile, err := lockfile.Load(lockPath)
	if err != nil {
		return Summary{}, fmt.Errorf("install: load lockfile: %w", err)
	}

	if !usedLockfile {
		plan, err = resolve.New(client).Resolve(ctx, roots)
		if err != nil {
			return Summary{}, fmt.Errorf("install: resolve: %w", err)
		}
		if err := lockfile.Save(lockPath, plan); err != nil {
			return Summary{}, fmt.Errorf("install: save lockfile: %w", err)
		}
	}

	if err := downloadAll(ctx, store.New(storeDir, client), plan, concurrency, opts.Progress); err != nil {
		return Summary{}, fmt.Errorf("install: download: %w", err)
	}

	if err := layout.Assemble(opts.Root, storeDir, plan); err != nil {
		return Summary{}, fmt.Errorf("install: layout: %w", err)
	}

	return Summary{PackageCount: len(plan), UsedLockfile: usedLockfile}, nil
}

// downloadAll fetches and extracts every plan entry with a worker pool
// bounded to concurrency. Entries have no inter-entry dependencies at this
// stage (the post-ordered plan already reflects resolution order), so the
// pool can be safely bounded unlike the resolver's unbounded pool.
func downloadAll(ctx context.Context, s *store.Store, plan resolve.Plan, concurrency int, progress func(done, total int)) error {
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, concurrency)
	var done atomic.Int64

	for _, e := range plan {
		e := e
		select {
		case sem <- struct{}{}:
		case <-gctx.Done():
			return g.Wait()
		}
		g.Go(func() error {
			defer func() { <-sem }()
			if err := s.FetchAndExtract(gctx, e.Name, e.Version, e.Tarball); err != nil {
				return err
			}
			if progress != nil {
				progress(int(done.Add(1)), len(plan))
			}
			return nil
		})
	}
	return g.Wait()
}
