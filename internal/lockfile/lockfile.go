// Package lockfile reads and writes yap.lock, a local resumption cache for
// the install plan. It is deliberately opaque to other tools: no claim of
// cross-implementation portability is made.
package lockfile

import (
	"encoding/json"
	"errors"
	"os"
	"sort"

	"github.com/npmyap/yap/internal/resolve"
)

// Lockfile is the serialized form of an install plan, sorted by name for
// deterministic, diff-friendly output.
type Lockfile struct {
	Entries []resolve.Entry `json:"entries"`
}

// Load reads and deserializes path. It returns ok=false (and no error) if
// the file does not exist; presence of a lockfile causes the caller to
// skip the resolver stage entirely.
func Load(path string) (resolve.Plan, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var lock Lockfile
	if err := json.Unmarshal(b, &lock); err != nil {
		return nil, false, err
	}
	return resolve.Plan(lock.Entries), true, nil
}

// Save writes plan to path as canonical, name-sorted JSON, overwriting
// whatever is already there.
func Save(path string, plan resolve.Plan) error {
	entries := append([]resolve.Entry(nil), plan...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	b, err := json.MarshalIndent(Lockfile{Entries: entries}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
