package resolve

import (
	"context"
	"errors"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/npmyap/yap/internal/npmver"
	"github.com/npmyap/yap/internal/registry"
	"github.com/npmyap/yap/internal/yaperr"
)

// MetadataFetcher is the registry collaborator the resolver needs: fetch a
// package's registry document, cached or not. registry.Client satisfies
// this.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, name string) (registry.Document, error)
}

// Resolver walks a root dependency mapping to a post-ordered install plan.
type Resolver struct {
	fetcher MetadataFetcher
}

// New constructs a Resolver backed by fetcher.
func New(fetcher MetadataFetcher) *Resolver {
	return &Resolver{fetcher: fetcher}
}

// Resolve expands roots (the manifest's merged dependencies ∪
// devDependencies ∪ peerDependencies) into a flat plan. Resolution of
// independent dependency edges is unbounded: recursion depth is not
// capped by a worker pool, avoiding the deadlock a bounded pool invites
// when a worker blocks on children it has no slot left to run.
func (r *Resolver) Resolve(ctx context.Context, roots map[string]string) (Plan, error) {
	coord := newCoordinator()

	g, gctx := errgroup.WithContext(ctx)
	for name, spec := range roots {
		name, spec := name, spec
		g.Go(func() error {
			return r.resolvePackage(gctx, coord, name, spec)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return coord.plan, nil
}

func (r *Resolver) resolvePackage(ctx context.Context, coord *coordinator, name, specifier string) error {
	if !coord.claim(name) {
		return nil
	}

	if strings.HasPrefix(specifier, "git+") || strings.HasPrefix(specifier, "git:") {
		log.Printf("yap: skipping %s: unsupported specifier %q", name, specifier)
		return nil
	}

	if strings.HasPrefix(specifier, "npm:") {
		aliasName, aliasVersion := parseNpmAlias(strings.TrimPrefix(specifier, "npm:"))
		return r.resolvePackage(ctx, coord, aliasName, aliasVersion)
	}

	doc, err := r.fetcher.FetchMetadata(ctx, name)
	if err != nil {
		return err
	}

	version, err := selectVersion(name, doc, specifier)
	if err != nil {
		var unsupported *yaperr.UnsupportedSpecifierError
		if errors.As(err, &unsupported) {
			log.Printf("yap: skipping %s: %v", name, err)
			return nil
		}
		return err
	}

	meta := doc.Versions[version]

	g, gctx := errgroup.WithContext(ctx)
	for depName, depSpec := range meta.Dependencies {
		depName, depSpec := depName, depSpec
		g.Go(func() error {
			return r.resolvePackage(gctx, coord, depName, depSpec)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	coord.append(Entry{
		Name:         name,
		Version:      version,
		Tarball:      meta.Dist.Tarball,
		Dependencies: meta.Dependencies,
	})
	return nil
}

// parseNpmAlias splits the remainder of an "npm:" specifier (after the
// prefix is stripped) into the target package name and version specifier:
// scoped names need the second "@" as the split point since the first is
// the scope marker.
func parseNpmAlias(spec string) (name, version string) {
	if strings.HasPrefix(spec, "@") {
		idx := strings.Index(spec[1:], "@")
		if idx < 0 {
			return spec, ""
		}
		return spec[:idx+1], spec[idx+2:]
	}
	idx := strings.Index(spec, "@")
	if idx < 0 {
		return spec, ""
	}
	return spec[:idx], spec[idx+1:]
}

// selectVersion picks the version of name (per doc) that satisfies
// specifier: semver-max of the published versions for a wildcard,
// constraint matching for everything else. dist-tags.latest is never
// consulted; it is a mutable tag.
func selectVersion(name string, doc registry.Document, specifier string) (string, error) {
	available := make([]npmver.Version, 0, len(doc.Versions))
	keyed := make(map[npmver.Version]string, len(doc.Versions))
	for k := range doc.Versions {
		v, err := npmver.ParseVersion(k)
		if err != nil {
			continue
		}
		available = append(available, v)
		keyed[v] = k
	}
	if len(available) == 0 {
		return "", &yaperr.NoMatchingVersionError{Name: name, Specifier: specifier}
	}

	trimmed := strings.TrimSpace(specifier)
	if trimmed == "" || trimmed == "*" {
		// Highest non-prerelease version; prereleases are only candidates
		// when nothing stable has ever been published.
		stable := make([]npmver.Version, 0, len(available))
		for _, v := range available {
			if !v.IsPrerelease() {
				stable = append(stable, v)
			}
		}
		if len(stable) == 0 {
			stable = available
		}
		return keyed[npmver.Max(stable)], nil
	}

	if looksUnsupported(trimmed) {
		return "", &yaperr.UnsupportedSpecifierError{Name: name, Specifier: specifier}
	}

	c, err := npmver.ParseConstraint(specifier)
	if err != nil {
		return "", err
	}
	v, ok := npmver.Select(c, available)
	if !ok {
		return "", &yaperr.NoMatchingVersionError{Name: name, Specifier: specifier}
	}
	return keyed[v], nil
}

func looksUnsupported(spec string) bool {
	for _, prefix := range []string{"git+", "git:", "file:", "http:", "https:", "npm:"} {
		if strings.HasPrefix(spec, prefix) {
			return true
		}
	}
	return false
}
