package config

import (
	"encoding/json"
	"os"
)

// ReadManifest reads package.json at path and returns the merged
// {name -> specifier} mapping: dependencies, then devDependencies, then
// peerDependencies, each later map overriding entries from the one
// before. A manifest with none of these fields (or an entirely empty
// object) yields an empty mapping, not an error.
func ReadManifest(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Dependencies     map[string]string `json:"dependencies"`
		DevDependencies  map[string]string `json:"devDependencies"`
		PeerDependencies map[string]string `json:"peerDependencies"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}

	merged := make(map[string]string)
	for _, m := range []map[string]string{doc.Dependencies, doc.DevDependencies, doc.PeerDependencies} {
		for name, spec := range m {
			merged[name] = spec
		}
	}
	return merged, nil
}
