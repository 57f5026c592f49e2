// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package knowledge holds the terminology knowledge base: the CUI to SNOMED
// CT map, the SNOMED CT is-a tree, and traversal over that tree. Store
// persists the same data in SQLite with a full-text index over concept names.
package knowledge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdiddy/cabinet/internal/pkgdata"
	"github.com/pdiddy/cabinet/pkg/types"
)

// ErrNotFound is returned when a concept is not in the knowledge base.
var ErrNotFound = errors.New("concept not found")

// Knowledge is an immutable, in-memory knowledge base. It is safe for
// concurrent use once built.
type Knowledge struct {
	cuiToSnomed types.ConceptMap
	names       types.ConceptNames
	tree        types.SnomedTree
	children    map[string][]string
	sctidToCUIs map[string][]string
}

// New builds a Knowledge from already loaded data. names may be nil.
func New(cuiMap types.ConceptMap, names types.ConceptNames, tree types.SnomedTree) *Knowledge {
	if cuiMap == nil {
		cuiMap = types.ConceptMap{}
	}
	if names == nil {
		names = types.ConceptNames{}
	}
	if tree == nil {
		tree = types.SnomedTree{}
	}

	k := &Knowledge{
		cuiToSnomed: cuiMap,
		names:       names,
		tree:        tree,
		children:    make(map[string][]string),
		sctidToCUIs: make(map[string][]string),
	}

	for child, parents := range tree {
		for parent := range parents {
			k.children[parent] = append(k.children[parent], child)
		}
	}
	for _, kids := range k.children {
		sort.Strings(kids)
	}

	for cui, sctid := range cuiMap {
		k.sctidToCUIs[sctid] = append(k.sctidToCUIs[sctid], cui)
	}
	for _, cuis := range k.sctidToCUIs {
		sort.Strings(cuis)
	}

	return k
}

// Load reads the package data from dir. The CUI map and the tree are
// required; concept names are optional.
func Load(dir string) (*Knowledge, error) {
	var cuiMap types.ConceptMap
	if err := pkgdata.ReadJSON(filepath.Join(dir, pkgdata.CUIMapFile), &cuiMap); err != nil {
		return nil, fmt.Errorf("loading CUI map: %w", err)
	}

	var lists map[string][]string
	if err := pkgdata.ReadJSON(filepath.Join(dir, pkgdata.SnomedTreeFile), &lists); err != nil {
		return nil, fmt.Errorf("loading SNOMED tree: %w", err)
	}

	var names types.ConceptNames
	err := pkgdata.ReadJSON(filepath.Join(dir, pkgdata.ConceptNamesFile), &names)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading concept names: %w", err)
	}

	return New(cuiMap, names, types.TreeFromLists(lists)), nil
}

// Convert returns the SNOMED CT identifier for cui. The second result is
// false when the CUI is not mapped.
func (k *Knowledge) Convert(cui string) (string, bool) {
	sctid, ok := k.cuiToSnomed[cui]
	return sctid, ok
}

// CUIs returns the CUIs that map to sctid, sorted.
func (k *Knowledge) CUIs(sctid string) []string {
	return k.sctidToCUIs[sctid]
}

// Name returns the preferred term for cui, if known.
func (k *Knowledge) Name(cui string) (string, bool) {
	name, ok := k.names[cui]
	return name, ok
}

// Names returns the CUI to preferred term map. Callers must not modify it.
func (k *Knowledge) Names() types.ConceptNames {
	return k.names
}

// ConceptMap returns the CUI to SNOMED CT map. Callers must not modify it.
func (k *Knowledge) ConceptMap() types.ConceptMap {
	return k.cuiToSnomed
}

// Tree returns the is-a tree. Callers must not modify it.
func (k *Knowledge) Tree() types.SnomedTree {
	return k.tree
}

// Contains reports whether sctid appears in the tree as a child or a parent.
func (k *Knowledge) Contains(sctid string) bool {
	if _, ok := k.tree[sctid]; ok {
		return true
	}
	_, ok := k.children[sctid]
	return ok
}

// Parents returns the is-a parents of sctid. The second result is false when
// sctid is not a child in the tree, which is always the case for the root.
func (k *Knowledge) Parents(sctid string) ([]string, bool) {
	return k.tree.Parents(sctid)
}

// Children returns a copy of the direct is-a children of sctid, sorted.
// Leaves and unknown identifiers return an empty, non-nil slice.
func (k *Knowledge) Children(sctid string) []string {
	children := k.children[sctid]
	out := make([]string, len(children))
	copy(out, children)
	return out
}

// Stats summarizes the size of the knowledge base.
type Stats struct {
	Concepts int `json:"concepts" yaml:"concepts"`
	Names    int `json:"names" yaml:"names"`
	Nodes    int `json:"nodes" yaml:"nodes"`
}

// Stats returns counts of mapped concepts, named concepts, and tree children.
func (k *Knowledge) Stats() Stats {
	return Stats{
		Concepts: len(k.cuiToSnomed),
		Names:    len(k.names),
		Nodes:    len(k.tree),
	}
}
