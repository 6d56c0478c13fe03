// Package registry fetches and caches npm registry documents and tarballs.
package registry

import "strings"

// VersionMeta is the subset of a registry document's per-version metadata
// this installer actually consumes. The full document carries far more
// (README, maintainers, license...) that is deliberately left unparsed.
type VersionMeta struct {
	Dist struct {
		Tarball string `json:"tarball"`
	} `json:"dist"`
	Dependencies map[string]string `json:"dependencies"`
}

// Document is the partially-parsed registry document for one package name:
// only the fields the resolver needs are extracted from the much larger
// upstream JSON blob.
type Document struct {
	DistTags struct {
		Latest string `json:"latest"`
	} `json:"dist-tags"`
	Versions map[string]VersionMeta `json:"versions"`
}

// Escape maps a package name onto a single filesystem path segment:
// scoped names (`@scope/name`) contain a `/` that isn't a path separator
// here, so it's substituted with `_`. Shared by the cache, store and layout
// packages so the encoding never drifts between them.
func Escape(name string) string {
	return strings.ReplaceAll(name, "/", "_")
}
