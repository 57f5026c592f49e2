// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/cabinet/internal/pkgdata"
	"github.com/pdiddy/cabinet/pkg/types"
)

// --- test helpers ---

// sampleTree is a small slice of the clinical finding hierarchy:
//
//	138875005 (root)
//	└── 404684003 clinical finding
//	    ├── 64572001 disease
//	    │   ├── 50043002 respiratory disorder
//	    │   │   └── 195967001 asthma
//	    │   └── 195967001 asthma
//	    └── 118234003 finding by site
//	        └── 50043002 respiratory disorder
func sampleTree() types.SnomedTree {
	tree := types.SnomedTree{}
	tree.Add("404684003", types.SnomedRoot)
	tree.Add("64572001", "404684003")
	tree.Add("118234003", "404684003")
	tree.Add("50043002", "64572001")
	tree.Add("50043002", "118234003")
	tree.Add("195967001", "64572001")
	tree.Add("195967001", "50043002")
	return tree
}

func sampleKnowledge() *Knowledge {
	return New(
		types.ConceptMap{"C0004096": "195967001", "C0035204": "50043002", "C0012634": "64572001"},
		types.ConceptNames{"C0004096": "Asthma", "C0012634": "Disease"},
		sampleTree(),
	)
}

func writePackageData(t *testing.T, dir string, names bool) {
	t.Helper()
	kb := sampleKnowledge()
	require.NoError(t, pkgdata.WriteJSON(filepath.Join(dir, pkgdata.CUIMapFile), kb.ConceptMap()))
	require.NoError(t, pkgdata.WriteJSON(filepath.Join(dir, pkgdata.SnomedTreeFile), kb.Tree().Lists()))
	if names {
		require.NoError(t, pkgdata.WriteJSON(filepath.Join(dir, pkgdata.ConceptNamesFile), kb.Names()))
	}
}

// --- tests ---

func TestConvert(t *testing.T) {
	kb := sampleKnowledge()

	tests := []struct {
		cui    string
		want   string
		wantOK bool
	}{
		{"C0004096", "195967001", true},
		{"C0035204", "50043002", true},
		{"C9999999", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.cui, func(t *testing.T) {
			got, ok := kb.Convert(tt.cui)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParentsAndChildren(t *testing.T) {
	kb := sampleKnowledge()

	parents, ok := kb.Parents("195967001")
	require.True(t, ok)
	assert.Equal(t, []string{"50043002", "64572001"}, parents)

	_, ok = kb.Parents(types.SnomedRoot)
	assert.False(t, ok)

	_, ok = kb.Parents("unknown")
	assert.False(t, ok)

	assert.Equal(t, []string{"118234003", "64572001"}, kb.Children("404684003"))
	assert.Equal(t, []string{"404684003"}, kb.Children(types.SnomedRoot))
	assert.Equal(t, []string{}, kb.Children("195967001"))
	assert.Equal(t, []string{}, kb.Children("unknown"))

	got := kb.Children("404684003")
	got[0] = "mutated"
	assert.Equal(t, []string{"118234003", "64572001"}, kb.Children("404684003"))
}

func TestContains(t *testing.T) {
	kb := sampleKnowledge()
	assert.True(t, kb.Contains(types.SnomedRoot))
	assert.True(t, kb.Contains("195967001"))
	assert.False(t, kb.Contains("1"))
}

func TestAncestorsDescendants(t *testing.T) {
	kb := sampleKnowledge()

	assert.Equal(t,
		[]string{"118234003", types.SnomedRoot, "404684003", "50043002", "64572001"},
		kb.Ancestors("195967001"))
	assert.Empty(t, kb.Ancestors(types.SnomedRoot))

	assert.Equal(t,
		[]string{"195967001", "50043002"},
		kb.Descendants("64572001"))
	assert.Empty(t, kb.Descendants("195967001"))
}

func TestIsDescendant(t *testing.T) {
	kb := sampleKnowledge()

	tests := []struct {
		name     string
		node     string
		ancestor string
		want     bool
	}{
		{"self", "195967001", "195967001", true},
		{"direct parent", "195967001", "50043002", true},
		{"through two paths", "195967001", "404684003", true},
		{"root", "195967001", types.SnomedRoot, true},
		{"reversed", "404684003", "195967001", false},
		{"sibling branch", "64572001", "118234003", false},
		{"unknown node", "unknown", types.SnomedRoot, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, kb.IsDescendant(tt.node, tt.ancestor))
		})
	}
}

func TestPathsToRoot(t *testing.T) {
	kb := sampleKnowledge()

	paths := kb.PathsToRoot("195967001")
	assert.Equal(t, [][]string{
		{types.SnomedRoot, "404684003", "118234003", "50043002", "195967001"},
		{types.SnomedRoot, "404684003", "64572001", "195967001"},
		{types.SnomedRoot, "404684003", "64572001", "50043002", "195967001"},
	}, paths)

	assert.Equal(t, [][]string{{types.SnomedRoot}}, kb.PathsToRoot(types.SnomedRoot))
	assert.Equal(t, [][]string{{"unknown"}}, kb.PathsToRoot("unknown"))
}

func TestPathsToRootCycle(t *testing.T) {
	tree := types.SnomedTree{}
	tree.Add("a", "b")
	tree.Add("b", "a")
	tree.Add("b", "root")
	kb := New(nil, nil, tree)

	assert.Equal(t, [][]string{{"root", "b", "a"}}, kb.PathsToRoot("a"))
}

func TestFormatPath(t *testing.T) {
	kb := sampleKnowledge()
	path := []string{"64572001", "50043002", "195967001"}

	assert.Equal(t, "64572001/50043002/195967001", kb.FormatPath(path, "/", false))
	assert.Equal(t, "Disease->50043002->Asthma", kb.FormatPath(path, "->", true))
	assert.Equal(t, "", kb.FormatPath(nil, "/", true))
}

func TestCommonAncestors(t *testing.T) {
	kb := sampleKnowledge()

	tests := []struct {
		name string
		a, b string
		want []string
	}{
		{"same node", "195967001", "195967001", []string{"195967001"}},
		{"ancestor of other", "195967001", "64572001", []string{"64572001"}},
		{"siblings", "64572001", "118234003", []string{"404684003"}},
		{"reached through two paths", "50043002", "195967001", []string{"50043002"}},
		{"disjoint", "195967001", "unknown", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, kb.CommonAncestors(tt.a, tt.b))
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writePackageData(t, dir, true)

	kb, err := Load(dir)
	require.NoError(t, err)

	sctid, ok := kb.Convert("C0004096")
	require.True(t, ok)
	assert.Equal(t, "195967001", sctid)
	assert.Equal(t, []string{"C0004096"}, kb.CUIs("195967001"))

	name, ok := kb.Name("C0004096")
	assert.True(t, ok)
	assert.Equal(t, "Asthma", name)

	assert.Equal(t, Stats{Concepts: 3, Names: 2, Nodes: 5}, kb.Stats())
}

func TestLoadWithoutNames(t *testing.T) {
	dir := t.TempDir()
	writePackageData(t, dir, false)

	kb, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, kb.Names())
}

func TestLoadMissingData(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading CUI map")
}
