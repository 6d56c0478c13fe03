package resolve

import "sync"

// coordinator owns the resolver's shared mutable state: the at-most-once
// seen-set and the accumulated plan. Every recursive expansion shares one
// coordinator instance so the check-and-insert on seen is a single atomic
// critical section.
type coordinator struct {
	mu   sync.Mutex
	seen map[string]bool
	plan Plan
}

func newCoordinator() *coordinator {
	return &coordinator{seen: make(map[string]bool)}
}

// claim marks name as seen and reports whether this call was the first to
// do so. Callers that lose the race return immediately without emitting a
// plan entry or recursing into dependencies.
func (c *coordinator) claim(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen[name] {
		return false
	}
	c.seen[name] = true
	return true
}

// append adds e to the plan. Safe for concurrent callers; order among
// concurrently-appending siblings is incidental. A child's append
// happens-before its parent's when the parent claimed that child, because
// the parent's errgroup waits on the child's goroutine before appending
// itself; a child claimed by another branch is not waited for.
func (c *coordinator) append(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plan = append(c.plan, e)
}
