// Command yap installs a project's npm dependencies: resolve (or replay a
// lockfile), fetch and extract every planned package into a content-
// addressed store, then assemble node_modules/. It takes no flags and
// always operates on the current working directory.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/npmyap/yap/internal/config"
	"github.com/npmyap/yap/internal/install"
	"github.com/npmyap/yap/internal/registry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "yap: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getwd: %w", err)
	}

	roots, err := config.ReadManifest(filepath.Join(wd, "package.json"))
	if err != nil {
		return fmt.Errorf("read package.json: %w", err)
	}

	home, err := os.UserHomeDir()
	var npmrcPaths []string
	if err == nil {
		npmrcPaths = append(npmrcPaths, filepath.Join(home, ".npmrc"))
	}
	npmrcPaths = append(npmrcPaths, filepath.Join(wd, ".npmrc"))

	cfg, err := config.LoadNpmrc(npmrcPaths...)
	if err != nil {
		return fmt.Errorf("read .npmrc: %w", err)
	}

	storeDir := filepath.Join(wd, ".yap_store")
	cache, err := registry.NewCache(filepath.Join(storeDir, ".yap_cache"))
	if err != nil {
		return fmt.Errorf("init metadata cache: %w", err)
	}
	client := registry.NewClient(cfg.Registry, cfg.Token, cache)

	summary, err := install.Run(context.Background(), client, roots, install.Options{
		Root:     wd,
		StoreDir: storeDir,
		Progress: func(done, total int) {
			fmt.Printf("\rfetching packages... %d/%d", done, total)
			if done == total {
				fmt.Println()
			}
		},
	})
	if err != nil {
		return err
	}

	if summary.UsedLockfile {
		fmt.Printf("installed %d packages from yap.lock\n", summary.PackageCount)
	} else {
		fmt.Printf("resolved and installed %d packages\n", summary.PackageCount)
	}
	return nil
}
