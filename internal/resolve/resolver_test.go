package resolve

import (
	"context"
	"testing"

	"github.com/npmyap/yap/internal/registry"
)

// fakeFetcher serves canned registry documents keyed by package name,
// standing in for registry.Client.
type fakeFetcher map[string]registry.Document

func (f fakeFetcher) FetchMetadata(_ context.Context, name string) (registry.Document, error) {
	doc, ok := f[name]
	if !ok {
		return registry.Document{}, errNotFound{name}
	}
	return doc, nil
}

type errNotFound struct{ name string }

func (e errNotFound) Error() string { return "no such package: " + e.name }

func versionMeta(tarball string, deps map[string]string) registry.VersionMeta {
	return registry.VersionMeta{
		Dist: struct {
			Tarball string `json:"tarball"`
		}{Tarball: tarball},
		Dependencies: deps,
	}
}

func TestResolveNoDeps(t *testing.T) {
	fetcher := fakeFetcher{
		"chalk": {Versions: map[string]registry.VersionMeta{
			"5.0.0": versionMeta("https://r/chalk-5.0.0.tgz", nil),
			"5.1.0": versionMeta("https://r/chalk-5.1.0.tgz", nil),
			"5.2.0": versionMeta("https://r/chalk-5.2.0.tgz", nil),
			"6.0.0": versionMeta("https://r/chalk-6.0.0.tgz", nil),
		}},
	}

	plan, err := New(fetcher).Resolve(context.Background(), map[string]string{"chalk": "^5.0.0"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(plan) != 1 || plan[0].Name != "chalk" || plan[0].Version != "5.2.0" {
		t.Fatalf("plan = %+v, want single chalk@5.2.0 entry", plan)
	}
}

func TestResolvePostOrder(t *testing.T) {
	fetcher := fakeFetcher{
		"a": {Versions: map[string]registry.VersionMeta{
			"1.0.0": versionMeta("https://r/a-1.0.0.tgz", map[string]string{"b": "^1"}),
		}},
		"b": {Versions: map[string]registry.VersionMeta{
			"1.0.0": versionMeta("https://r/b-1.0.0.tgz", nil),
			"1.1.0": versionMeta("https://r/b-1.1.0.tgz", nil),
		}},
	}

	plan, err := New(fetcher).Resolve(context.Background(), map[string]string{"a": "1.0.0"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(plan) != 2 {
		t.Fatalf("plan = %+v, want 2 entries", plan)
	}
	if plan[0].Name != "b" || plan[0].Version != "1.1.0" {
		t.Errorf("plan[0] = %+v, want b@1.1.0 (dependency before dependent)", plan[0])
	}
	if plan[1].Name != "a" || plan[1].Version != "1.0.0" {
		t.Errorf("plan[1] = %+v, want a@1.0.0", plan[1])
	}
}

func TestResolveFirstWinsSharedDependency(t *testing.T) {
	fetcher := fakeFetcher{
		"x": {Versions: map[string]registry.VersionMeta{
			"1.0.0": versionMeta("https://r/x.tgz", map[string]string{"shared": "^1.0.0"}),
		}},
		"y": {Versions: map[string]registry.VersionMeta{
			"1.0.0": versionMeta("https://r/y.tgz", map[string]string{"shared": "^1.2.0"}),
		}},
		"shared": {Versions: map[string]registry.VersionMeta{
			"1.0.0": versionMeta("https://r/shared-1.0.0.tgz", nil),
			"1.2.0": versionMeta("https://r/shared-1.2.0.tgz", nil),
			"1.3.0": versionMeta("https://r/shared-1.3.0.tgz", nil),
		}},
	}

	plan, err := New(fetcher).Resolve(context.Background(), map[string]string{"x": "1.0.0", "y": "1.0.0"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	var sharedCount int
	var sharedVersion string
	for _, e := range plan {
		if e.Name == "shared" {
			sharedCount++
			sharedVersion = e.Version
		}
	}
	if sharedCount != 1 {
		t.Fatalf("shared appears %d times in plan, want exactly 1", sharedCount)
	}
	// whichever of x/y's goroutine wins the seen-claim race picks the
	// version: both constraints are satisfied by 1.3.0, the highest
	// available, so the first resolution always picks it regardless of
	// which root wins.
	if sharedVersion != "1.3.0" {
		t.Errorf("shared resolved to %s, want 1.3.0", sharedVersion)
	}
}

func TestResolveSkipsUnsupportedSpecifier(t *testing.T) {
	plan, err := New(fakeFetcher{}).Resolve(context.Background(), map[string]string{
		"g": "git+https://example.com/g.git",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(plan) != 0 {
		t.Fatalf("plan = %+v, want empty plan for a skipped git specifier", plan)
	}
}

func TestResolveNpmAlias(t *testing.T) {
	fetcher := fakeFetcher{
		"real-name": {Versions: map[string]registry.VersionMeta{
			"1.0.0": versionMeta("https://r/real-1.0.0.tgz", nil),
			"2.0.0": versionMeta("https://r/real-2.0.0.tgz", nil),
		}},
	}

	plan, err := New(fetcher).Resolve(context.Background(), map[string]string{
		"aliased": "npm:real-name@^1.0.0",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(plan) != 1 {
		t.Fatalf("plan = %+v, want 1 entry", plan)
	}
	if plan[0].Name != "real-name" || plan[0].Version != "1.0.0" {
		t.Errorf("plan[0] = %+v, want real-name@1.0.0 (the alias target)", plan[0])
	}
}

func TestResolveWildcardPrefersStable(t *testing.T) {
	fetcher := fakeFetcher{
		"pkg": {Versions: map[string]registry.VersionMeta{
			"1.0.0":        versionMeta("https://r/pkg-1.0.0.tgz", nil),
			"2.0.0-beta.1": versionMeta("https://r/pkg-2.0.0-beta.1.tgz", nil),
		}},
	}

	for _, spec := range []string{"", "*"} {
		plan, err := New(fetcher).Resolve(context.Background(), map[string]string{"pkg": spec})
		if err != nil {
			t.Fatalf("Resolve(%q): %v", spec, err)
		}
		if len(plan) != 1 || plan[0].Version != "1.0.0" {
			t.Errorf("Resolve(%q) plan = %+v, want pkg@1.0.0 (highest stable)", spec, plan)
		}
	}
}

func TestResolveScopedNpmAlias(t *testing.T) {
	fetcher := fakeFetcher{
		"@scope/impl": {Versions: map[string]registry.VersionMeta{
			"1.4.0": versionMeta("https://r/impl-1.4.0.tgz", nil),
		}},
	}

	plan, err := New(fetcher).Resolve(context.Background(), map[string]string{
		"facade": "npm:@scope/impl@^1.0.0",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(plan) != 1 || plan[0].Name != "@scope/impl" || plan[0].Version != "1.4.0" {
		t.Errorf("plan = %+v, want @scope/impl@1.4.0", plan)
	}
}

func TestResolveEmptyManifestProducesEmptyPlan(t *testing.T) {
	plan, err := New(fakeFetcher{}).Resolve(context.Background(), map[string]string{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(plan) != 0 {
		t.Fatalf("plan = %+v, want empty", plan)
	}
}

