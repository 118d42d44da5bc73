// Package cache owns the set of known COB files, their parse/extraction
// state, the project manifest, and the import dependency graph. Files
// arrive asynchronously and in arbitrary order; Submit and Invalidate
// drive every file that can make progress to a fixed point before
// returning, so partial resolution is never observable from outside.
//
// A Cache is not safe for concurrent use: all interaction goes through
// Submit/Invalidate/Remove and the query methods, serialized by the host.
package cache

import (
	"context"
	"sort"

	"github.com/coblang/cob/internal/ctxlog"
	"github.com/coblang/cob/internal/depgraph"
	"github.com/coblang/cob/internal/diag"
	"github.com/coblang/cob/internal/extract"
	"github.com/coblang/cob/internal/manifest"
	"github.com/coblang/cob/internal/parser"
	"github.com/coblang/cob/internal/resolve"
)

// State is a file's position in the lifecycle.
type State int

const (
	// StateMissing: the path has been referenced or invalidated but no
	// bytes have been accepted yet.
	StateMissing State = iota
	// StateFailed: the latest submission produced an error, which is
	// retained and queryable. Previously resolved output, if any, stays
	// available until successfully replaced.
	StateFailed
	// StatePending: parsed and extracted, waiting for the transitive
	// closure of its imports to become available.
	StatePending
	// StateResolved: fully expanded output is current.
	StateResolved
	// StateRemoved: the host signalled that the file is gone for good;
	// importers fail rather than wait.
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateMissing:
		return "missing"
	case StateFailed:
		return "failed"
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

type entry struct {
	tables   *extract.Tables
	resolved *resolve.ResolvedFile
	state    State
	errs     diag.Errors
}

// Cache is the incremental scheduler. The zero value is not usable; call
// New.
type Cache struct {
	files    map[string]*entry
	manifest *manifest.Resolver
	graph    *depgraph.Graph
}

// New returns an empty Cache. Independent instances share no state.
func New() *Cache {
	return &Cache{
		files:    map[string]*entry{},
		manifest: manifest.New(),
		graph:    depgraph.New(),
	}
}

// Submit parses and extracts one file's bytes, then resolves it and every
// file whose only obstacle was this one. The returned errors are the
// file's own; dependents' states are queryable per path.
func (c *Cache) Submit(ctx context.Context, path string, src []byte) diag.Errors {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("cache: submit", "path", path, "bytes", len(src))

	f, errs := parser.Parse(path, string(src))
	var tables *extract.Tables
	if !errs.HasErrors() {
		tables, errs = extract.FromFile(f)
	}

	e := c.ensure(path)
	c.manifest.Unregister(path)

	if errs.HasErrors() {
		// The file is invalid; dependents keep their previous output but
		// drop back to pending until a good submission arrives.
		e.tables = nil
		e.state = StateFailed
		e.errs = errs
		c.graph.Add(path)
		c.demoteDependents(path)
		// Unregistering may have healed a manifest conflict elsewhere.
		c.refreshConflicts()
		c.settle(ctx)
		logger.Debug("cache: submission rejected", "path", path, "errors", len(errs))
		return errs
	}

	e.tables = tables
	e.state = StatePending
	e.errs = nil

	merrs := c.manifest.Register(path, tables.Manifest)

	// Content changed: every transitive dependent must re-resolve against
	// the new tables.
	c.demoteDependents(path)
	c.graph.SetDependencies(path, c.depPaths(tables))
	c.refreshConflicts()
	if merrs.HasErrors() {
		// The submitter keeps the detailed report with both spans.
		e.state = StateFailed
		e.errs = merrs
	}
	c.settle(ctx)
	return c.files[path].errs
}

// Invalidate discards a file's AST, tables, and output ahead of a
// re-submission of its bytes. Dependents lose their resolved output (their
// own sources did not change, so their tables survive) and are re-queued.
func (c *Cache) Invalidate(ctx context.Context, path string) {
	logger := ctxlog.FromContext(ctx)
	e := c.files[path]
	if e == nil {
		return
	}
	logger.Debug("cache: invalidate", "path", path)
	c.manifest.Unregister(path)
	e.tables = nil
	e.resolved = nil
	e.state = StateMissing
	e.errs = nil
	c.graph.SetDependencies(path, nil)
	for _, d := range c.graph.TransitiveDependents(path) {
		if de := c.files[d]; de != nil {
			de.resolved = nil
			if de.tables != nil {
				de.state = StatePending
				de.errs = nil
			}
		}
	}
	c.refreshConflicts()
	c.settle(ctx)
}

// Remove is the explicit this-file-is-gone signal. Unlike a merely
// not-yet-loaded dependency, a removed one is proven unreachable: files
// importing it fail with an unresolved reference instead of pending
// forever.
func (c *Cache) Remove(ctx context.Context, path string) {
	logger := ctxlog.FromContext(ctx)
	e := c.files[path]
	if e == nil {
		return
	}
	logger.Debug("cache: remove", "path", path)

	// Identify, while the manifest still resolves, which import of each
	// direct dependent pointed at the removed file.
	type brokenImport struct {
		dependent string
		imp       extract.Import
	}
	var broken []brokenImport
	for _, d := range c.graph.Dependents(path) {
		de := c.files[d]
		if de == nil || de.tables == nil {
			continue
		}
		for _, alias := range de.tables.ImportOrder {
			imp := de.tables.Imports[alias]
			if target, ok := c.manifest.Lookup(imp.Key); ok && target == path {
				broken = append(broken, brokenImport{dependent: d, imp: imp})
			}
		}
	}

	c.manifest.Unregister(path)
	for _, d := range c.graph.TransitiveDependents(path) {
		if de := c.files[d]; de != nil && de.tables != nil {
			de.state = StatePending
		}
	}
	c.graph.Remove(path)
	c.files[path] = &entry{state: StateRemoved}
	c.refreshConflicts()

	for _, b := range broken {
		de := c.files[b.dependent]
		de.state = StateFailed
		de.errs = append(de.errs, diag.New(diag.UnresolvedReference, b.imp.Rng,
			"import %q resolves to removed file %q", b.imp.Key, path))
	}
	c.settle(ctx)
}

// Resolved returns the file's most recent successfully resolved output.
// Per the retention policy it may be served while the file is failed or
// pending; State reports freshness.
func (c *Cache) Resolved(path string) (*resolve.ResolvedFile, bool) {
	e := c.files[path]
	if e == nil || e.resolved == nil {
		return nil, false
	}
	return e.resolved, true
}

// State reports the file's lifecycle state. Unknown paths are missing.
func (c *Cache) State(path string) State {
	e := c.files[path]
	if e == nil {
		return StateMissing
	}
	return e.state
}

// Errors returns the retained error state for a path, if any.
func (c *Cache) Errors(path string) diag.Errors {
	e := c.files[path]
	if e == nil {
		return nil
	}
	return e.errs
}

// Paths lists every known path, sorted.
func (c *Cache) Paths() []string {
	out := make([]string, 0, len(c.files))
	for p := range c.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Tables implements resolve.Lookup.
func (c *Cache) Tables(path string) (*extract.Tables, bool) {
	e := c.files[path]
	if e == nil || e.tables == nil {
		return nil, false
	}
	return e.tables, true
}

// PathForKey implements resolve.Lookup.
func (c *Cache) PathForKey(key string) (string, bool) {
	return c.manifest.Lookup(key)
}

func (c *Cache) ensure(path string) *entry {
	e := c.files[path]
	if e == nil {
		e = &entry{state: StateMissing}
		c.files[path] = e
	}
	return e
}

// demoteDependents moves every transitive dependent with live tables back
// to pending so the next settle pass reconsiders it. Dependents that were
// failed re-enter the worklist too: their failure was derived from
// cross-file state that just changed.
func (c *Cache) demoteDependents(path string) {
	for _, d := range c.graph.TransitiveDependents(path) {
		if de := c.files[d]; de != nil && de.tables != nil {
			de.state = StatePending
			de.errs = nil
		}
	}
}

// refreshConflicts reconciles per-file state with the current manifest
// conflict set: every file contributing to a conflicted key fails, and a
// file whose only failure was a now-healed conflict returns to pending.
func (c *Cache) refreshConflicts() {
	keys := c.manifest.ConflictedKeys()
	for p, e := range c.files {
		if e.tables == nil {
			continue
		}
		var errs diag.Errors
		for _, d := range e.tables.Manifest {
			if keys[d.Key] {
				err := diag.New(diag.ManifestConflict, d.Rng,
					"manifest key %q is bound to more than one path", d.Key)
				err.Detail = "A manifest key must map to exactly one path project-wide."
				errs = append(errs, err)
			}
		}
		switch {
		case errs.HasErrors():
			if e.state != StateFailed {
				c.demoteDependents(p)
			}
			e.state = StateFailed
			e.errs = errs
		case e.state == StateFailed && manifestConflictOnly(e.errs):
			e.state = StatePending
			e.errs = nil
		}
	}
}

func manifestConflictOnly(errs diag.Errors) bool {
	if !errs.HasErrors() {
		return false
	}
	for _, e := range errs {
		if e.Kind != diag.ManifestConflict {
			return false
		}
	}
	return true
}

// depPaths maps a file's imports to currently-resolvable target paths.
// Unresolvable keys contribute no edge yet; settle re-derives edges on
// every pass, so a late-arriving manifest declaration completes them.
func (c *Cache) depPaths(t *extract.Tables) []string {
	var out []string
	for _, alias := range t.ImportOrder {
		if target, ok := c.manifest.Lookup(t.Imports[alias].Key); ok {
			out = append(out, target)
		}
	}
	return out
}

// settle processes every pending file as a worklist until a fixed point:
// no recursion through callbacks, bounded stack, uniform failure handling.
func (c *Cache) settle(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	for changed := true; changed; {
		changed = false
		for _, path := range c.Paths() {
			e := c.files[path]
			if e.state != StatePending || e.tables == nil {
				continue
			}
			c.graph.SetDependencies(path, c.depPaths(e.tables))
			ready, fatal := c.closure(path)
			if fatal.HasErrors() {
				e.state = StateFailed
				e.errs = fatal
				changed = true
				continue
			}
			if !ready {
				continue
			}
			// Dependency tables are read live during this call; nothing is
			// cached across attempts, so a stale snapshot can never commit.
			rf, rerrs := resolve.File(e.tables, c)
			if rerrs.HasErrors() {
				e.state = StateFailed
				e.errs = rerrs
				changed = true
				continue
			}
			e.resolved = rf
			e.state = StateResolved
			e.errs = nil
			changed = true
			logger.Debug("cache: resolved", "path", path,
				"commands", len(rf.Commands), "scenes", len(rf.Scenes))
		}
	}
}

// closure walks the transitive import closure of path and reports whether
// every dependency has extracted tables. A dependency that is merely
// absent or failed keeps the file pending; one that was explicitly
// removed is fatal.
func (c *Cache) closure(path string) (bool, diag.Errors) {
	visited := map[string]bool{path: true}
	queue := []string{path}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		pe := c.files[p]
		for _, alias := range pe.tables.ImportOrder {
			imp := pe.tables.Imports[alias]
			target, ok := c.manifest.Lookup(imp.Key)
			if !ok {
				return false, nil // key unknown or conflicted: wait
			}
			te := c.files[target]
			if te == nil {
				return false, nil // referenced file not yet submitted
			}
			if te.state == StateRemoved {
				err := diag.New(diag.UnresolvedReference, imp.Rng,
					"import %q resolves to removed file %q", imp.Key, target)
				return false, diag.Errors{err}
			}
			if te.tables == nil {
				return false, nil // failed or awaiting bytes: wait
			}
			if !visited[target] {
				visited[target] = true
				queue = append(queue, target)
			}
		}
	}
	return true, nil
}
