package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coblang/cob/internal/diag"
	"github.com/coblang/cob/internal/extract"
	"github.com/coblang/cob/internal/parser"
)

func mustTables(t *testing.T, path, src string) *extract.Tables {
	t.Helper()
	f, errs := parser.Parse(path, src)
	require.False(t, errs.HasErrors(), "parse failed: %v", errs)
	tables, errs := extract.FromFile(f)
	require.False(t, errs.HasErrors(), "extract failed: %v", errs)
	return tables
}

func TestFromFile_Tables(t *testing.T) {
	src := `manifest
    app self
    lib "lib.cob"

import
    ui lib
    gfx lib

using
    box ui.box

defs
    width = 120
    pair(a, b) = [a, b]
    scene header(title)
        bar

commands
    Load(path: "x")

scenes
    root
`
	tables := mustTables(t, "app.cob", src)

	assert.Equal(t, "app.cob", tables.Path)

	require.Len(t, tables.Manifest, 2)
	assert.Equal(t, "app", tables.Manifest[0].Key)
	assert.Equal(t, "app.cob", tables.Manifest[0].Path, "self resolves to the declaring file")
	assert.Equal(t, "lib.cob", tables.Manifest[1].Path)

	assert.Equal(t, []string{"ui", "gfx"}, tables.ImportOrder)
	assert.Equal(t, "lib", tables.Imports["ui"].Key)

	require.Contains(t, tables.Usings, "box")
	assert.Equal(t, "ui", tables.Usings["box"].Alias)

	require.Contains(t, tables.Consts, "width")
	require.Contains(t, tables.Macros, "pair")
	assert.Equal(t, []string{"a", "b"}, tables.Macros["pair"].Params)
	require.Contains(t, tables.SceneMacros, "header")

	require.Len(t, tables.Commands, 1)
	require.Len(t, tables.Scenes, 1)
}

func TestFromFile_EmptyFile(t *testing.T) {
	tables := mustTables(t, "empty.cob", "")
	assert.Empty(t, tables.Manifest)
	assert.Empty(t, tables.Commands)
	assert.Empty(t, tables.Scenes)
}

func TestFromFile_Duplicates(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"manifest key", "manifest\n    k self\n    k \"other.cob\"\n"},
		{"import alias", "manifest\n    a \"a.cob\"\n    b \"b.cob\"\nimport\n    x a\n    x b\n"},
		{"const vs const", "defs\n    w = 1\n    w = 2\n"},
		{"const vs macro", "defs\n    w = 1\n    w(a) = a\n"},
		{"const vs scene macro", "defs\n    w = 1\n    scene w(a)\n        n\n"},
		{"using vs const", "manifest\n    l \"l.cob\"\nimport\n    u l\nusing\n    w u.w\ndefs\n    w = 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, perrs := parser.Parse("test.cob", tt.src)
			require.False(t, perrs.HasErrors(), "parse failed: %v", perrs)
			_, errs := extract.FromFile(f)
			require.True(t, errs.HasErrors(), "expected a duplicate-declaration error")
			assert.Equal(t, diag.DuplicateDeclaration, errs[0].Kind)
			assert.NotEmpty(t, errs[0].Related, "both declaration sites are reported")
		})
	}
}

func TestFromFile_DuplicateKeepsFirstDeclaration(t *testing.T) {
	f, perrs := parser.Parse("test.cob", "defs\n    w = 1\n    w = 2\n")
	require.False(t, perrs.HasErrors())
	tables, errs := extract.FromFile(f)
	require.True(t, errs.HasErrors())
	// The first binding survives so downstream reporting stays stable.
	require.Contains(t, tables.Consts, "w")
}
