// Package manifest maintains the project-wide mapping between manifest
// keys and file paths as files are registered and unregistered.
package manifest

import (
	"sort"

	"github.com/hashicorp/hcl/v2"

	"github.com/coblang/cob/internal/diag"
	"github.com/coblang/cob/internal/extract"
)

// binding is one (key -> target path) assertion made by a declaring file.
type binding struct {
	target string
	rng    hcl.Range
}

// Resolver holds every live manifest declaration. A key is resolvable only
// while all declarations agree on a single target path; a conflicted key
// resolves for nobody until one side is unregistered or changed.
type Resolver struct {
	// byFile: declaring path -> its bindings, for unregistration.
	byFile map[string][]extract.ManifestDecl
	// byKey: key -> target path -> declaring files' spans.
	byKey map[string]map[string][]binding
}

// New returns an empty Resolver.
func New() *Resolver {
	return &Resolver{
		byFile: map[string][]extract.ManifestDecl{},
		byKey:  map[string]map[string][]binding{},
	}
}

// Register records a file's manifest declarations. It returns a
// ManifestConflictError for every key the file binds to a path that
// disagrees with an existing declaration. Conflicting bindings are still
// recorded, so the key stays unresolvable until the conflict is fixed.
func (r *Resolver) Register(path string, decls []extract.ManifestDecl) diag.Errors {
	r.Unregister(path)
	var errs diag.Errors
	for _, d := range decls {
		targets := r.byKey[d.Key]
		if targets == nil {
			targets = map[string][]binding{}
			r.byKey[d.Key] = targets
		}
		for other, bs := range targets {
			if other != d.Path && len(bs) > 0 {
				e := diag.New(diag.ManifestConflict, d.Rng,
					"manifest key %q is already bound to %q", d.Key, other)
				e.Detail = "A manifest key must map to exactly one path project-wide."
				e.Related = []hcl.Range{bs[0].rng}
				errs = append(errs, e)
			}
		}
		targets[d.Path] = append(targets[d.Path], binding{target: d.Path, rng: d.Rng})
		r.byFile[path] = append(r.byFile[path], d)
	}
	return errs
}

// Unregister drops every declaration previously registered for path.
func (r *Resolver) Unregister(path string) {
	for _, d := range r.byFile[path] {
		targets := r.byKey[d.Key]
		bs := targets[d.Path]
		for i, b := range bs {
			if b.rng == d.Rng {
				bs = append(bs[:i], bs[i+1:]...)
				break
			}
		}
		if len(bs) == 0 {
			delete(targets, d.Path)
		} else {
			targets[d.Path] = bs
		}
		if len(targets) == 0 {
			delete(r.byKey, d.Key)
		}
	}
	delete(r.byFile, path)
}

// Lookup resolves a key to its path. It fails for unknown keys and for
// keys currently bound to more than one path.
func (r *Resolver) Lookup(key string) (string, bool) {
	targets := r.byKey[key]
	if len(targets) != 1 {
		return "", false
	}
	for target := range targets {
		return target, true
	}
	return "", false
}

// ConflictedKeys returns the set of keys currently bound to more than one
// path. Such keys resolve for nobody until one side changes.
func (r *Resolver) ConflictedKeys() map[string]bool {
	out := map[string]bool{}
	for key, targets := range r.byKey {
		if len(targets) > 1 {
			out[key] = true
		}
	}
	return out
}

// Conflicted returns the paths of all files contributing to a conflict on
// any key, sorted. The cache uses it to surface the conflict against every
// involved file, not just the last one registered.
func (r *Resolver) Conflicted() []string {
	keys := r.ConflictedKeys()
	set := map[string]bool{}
	for path, decls := range r.byFile {
		for _, d := range decls {
			if keys[d.Key] {
				set[path] = true
			}
		}
	}
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
