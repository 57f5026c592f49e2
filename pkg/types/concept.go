// Package types defines shared data structures for the cabinet drawers.
//
// The terminology types describe the generated package data: a map from UMLS
// CUIs to SNOMED CT identifiers and the SNOMED is-a hierarchy keyed by child.
// The NER and MMI types describe the output of the two concept extractors.
package types

import "sort"

// SnomedRoot is the SCTID of the SNOMED CT root concept. It is never a key of
// a SnomedTree because it has no is-a parents.
const SnomedRoot = "138875005"

// IsARelationship is the SNOMED CT typeId of the "is a" relationship.
const IsARelationship = "116680003"

// ConceptMap maps a UMLS CUI to its SNOMED CT US identifier.
type ConceptMap map[string]string

// ConceptNames maps a UMLS CUI to its preferred SNOMED CT term.
type ConceptNames map[string]string

// SnomedTree maps a SNOMED CT identifier to the set of its is-a parents.
type SnomedTree map[string]map[string]struct{}

// Add records parent as an is-a parent of child.
func (t SnomedTree) Add(child, parent string) {
	parents, ok := t[child]
	if !ok {
		parents = make(map[string]struct{})
		t[child] = parents
	}
	parents[parent] = struct{}{}
}

// Parents returns the sorted parents of child and whether child is in the tree.
func (t SnomedTree) Parents(child string) ([]string, bool) {
	parents, ok := t[child]
	if !ok {
		return nil, false
	}
	return sortedKeys(parents), true
}

// Lists converts the tree to its on-disk form: child -> sorted parent list.
func (t SnomedTree) Lists() map[string][]string {
	out := make(map[string][]string, len(t))
	for child, parents := range t {
		out[child] = sortedKeys(parents)
	}
	return out
}

// TreeFromLists builds a SnomedTree from its on-disk form.
func TreeFromLists(lists map[string][]string) SnomedTree {
	t := make(SnomedTree, len(lists))
	for child, parents := range lists {
		for _, p := range parents {
			t.Add(child, p)
		}
	}
	return t
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
