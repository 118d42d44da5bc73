package manifest_test

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coblang/cob/internal/diag"
	"github.com/coblang/cob/internal/extract"
	"github.com/coblang/cob/internal/manifest"
)

func decl(key, path string, line int) extract.ManifestDecl {
	return extract.ManifestDecl{
		Key:  key,
		Path: path,
		Rng:  hcl.Range{Filename: path, Start: hcl.Pos{Line: line, Column: 5}},
	}
}

func TestRegisterAndLookup(t *testing.T) {
	r := manifest.New()
	errs := r.Register("a.cob", []extract.ManifestDecl{
		decl("app", "a.cob", 2),
		decl("lib", "lib.cob", 3),
	})
	require.False(t, errs.HasErrors())

	path, ok := r.Lookup("app")
	require.True(t, ok)
	assert.Equal(t, "a.cob", path)

	path, ok = r.Lookup("lib")
	require.True(t, ok)
	assert.Equal(t, "lib.cob", path)

	_, ok = r.Lookup("unknown")
	assert.False(t, ok)
}

func TestRegister_AgreeingDeclarationsDoNotConflict(t *testing.T) {
	r := manifest.New()
	require.False(t, r.Register("a.cob", []extract.ManifestDecl{decl("lib", "lib.cob", 2)}).HasErrors())
	require.False(t, r.Register("b.cob", []extract.ManifestDecl{decl("lib", "lib.cob", 2)}).HasErrors())

	path, ok := r.Lookup("lib")
	require.True(t, ok)
	assert.Equal(t, "lib.cob", path)
	assert.Empty(t, r.Conflicted())
}

func TestRegister_ConflictPoisonsKey(t *testing.T) {
	r := manifest.New()
	require.False(t, r.Register("a.cob", []extract.ManifestDecl{decl("k", "a.cob", 2)}).HasErrors())

	errs := r.Register("b.cob", []extract.ManifestDecl{decl("k", "b.cob", 2)})
	require.True(t, errs.HasErrors())
	assert.Equal(t, diag.ManifestConflict, errs[0].Kind)
	assert.NotEmpty(t, errs[0].Related, "the earlier binding is referenced")

	// A conflicted key resolves for nobody.
	_, ok := r.Lookup("k")
	assert.False(t, ok)

	assert.Equal(t, []string{"a.cob", "b.cob"}, r.Conflicted())
}

func TestUnregister_HealsConflict(t *testing.T) {
	r := manifest.New()
	r.Register("a.cob", []extract.ManifestDecl{decl("k", "a.cob", 2)})
	r.Register("b.cob", []extract.ManifestDecl{decl("k", "b.cob", 2)})

	r.Unregister("b.cob")

	path, ok := r.Lookup("k")
	require.True(t, ok, "removing one side of the conflict restores the key")
	assert.Equal(t, "a.cob", path)
	assert.Empty(t, r.Conflicted())
}

func TestRegister_ReplacesEarlierDeclarations(t *testing.T) {
	r := manifest.New()
	r.Register("a.cob", []extract.ManifestDecl{decl("old", "a.cob", 2)})
	r.Register("a.cob", []extract.ManifestDecl{decl("new", "a.cob", 2)})

	_, ok := r.Lookup("old")
	assert.False(t, ok, "re-registering a file drops its previous declarations")
	_, ok = r.Lookup("new")
	assert.True(t, ok)
}

func TestUnregister_UnknownPathIsANoop(t *testing.T) {
	r := manifest.New()
	r.Unregister("never-registered.cob")
	_, ok := r.Lookup("k")
	assert.False(t, ok)
}
