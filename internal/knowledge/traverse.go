// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"sort"
	"strings"
)

// Ancestors returns every concept reachable from sctid through is-a parents,
// excluding sctid itself, sorted.
func (k *Knowledge) Ancestors(sctid string) []string {
	return k.closure(sctid, func(n string) []string {
		parents, _ := k.tree.Parents(n)
		return parents
	})
}

// Descendants returns every concept reachable from sctid through is-a
// children, excluding sctid itself, sorted.
func (k *Knowledge) Descendants(sctid string) []string {
	return k.closure(sctid, func(n string) []string {
		return k.children[n]
	})
}

// closure walks breadth-first from start, visiting each node once.
func (k *Knowledge) closure(start string, next func(string) []string) []string {
	seen := map[string]bool{start: true}
	queue := []string{start}
	var out []string

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, m := range next(n) {
			if seen[m] {
				continue
			}
			seen[m] = true
			out = append(out, m)
			queue = append(queue, m)
		}
	}

	sort.Strings(out)
	return out
}

// IsDescendant reports whether sctid is ancestor or sits below it.
func (k *Knowledge) IsDescendant(sctid, ancestor string) bool {
	if sctid == ancestor {
		return true
	}
	seen := map[string]bool{sctid: true}
	stack := []string{sctid}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		parents, _ := k.tree.Parents(n)
		for _, p := range parents {
			if p == ancestor {
				return true
			}
			if !seen[p] {
				seen[p] = true
				stack = append(stack, p)
			}
		}
	}
	return false
}

// PathsToRoot returns every path from sctid up to a concept with no parents.
// Each path starts at the top-most concept and ends at sctid. A node that is
// not in the tree yields the single path [sctid]. Paths are sorted.
func (k *Knowledge) PathsToRoot(sctid string) [][]string {
	var paths [][]string
	onPath := map[string]bool{}

	var walk func(n string, trail []string)
	walk = func(n string, trail []string) {
		trail = append(trail, n)
		parents, _ := k.tree.Parents(n)

		var open []string
		for _, p := range parents {
			if !onPath[p] {
				open = append(open, p)
			}
		}
		if len(open) == 0 {
			path := make([]string, len(trail))
			for i := range trail {
				path[i] = trail[len(trail)-1-i]
			}
			paths = append(paths, path)
			return
		}

		onPath[n] = true
		for _, p := range open {
			walk(p, trail)
		}
		onPath[n] = false
	}
	walk(sctid, nil)

	sort.Slice(paths, func(i, j int) bool {
		return strings.Join(paths[i], "/") < strings.Join(paths[j], "/")
	})
	return paths
}

// FormatPath joins a path with sep, e.g. "A/B/C" or "A->B->C". When names is
// true and a concept has a known preferred term, the term is shown instead
// of the identifier.
func (k *Knowledge) FormatPath(path []string, sep string, names bool) string {
	parts := make([]string, len(path))
	for i, sctid := range path {
		parts[i] = sctid
		if !names {
			continue
		}
		for _, cui := range k.sctidToCUIs[sctid] {
			if name, ok := k.names[cui]; ok {
				parts[i] = name
				break
			}
		}
	}
	return strings.Join(parts, sep)
}

// CommonAncestors returns the lowest common ancestors of a and b: concepts
// that are an ancestor-or-self of both and that have no descendant with the
// same property. The result is sorted.
func (k *Knowledge) CommonAncestors(a, b string) []string {
	ofA := k.ancestorsOrSelf(a)
	ofB := k.ancestorsOrSelf(b)

	shared := map[string]bool{}
	for n := range ofA {
		if ofB[n] {
			shared[n] = true
		}
	}

	// Anything strictly above another shared node is not lowest.
	dominated := map[string]bool{}
	for n := range shared {
		for _, anc := range k.Ancestors(n) {
			dominated[anc] = true
		}
	}

	var out []string
	for n := range shared {
		if !dominated[n] {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

func (k *Knowledge) ancestorsOrSelf(sctid string) map[string]bool {
	set := map[string]bool{sctid: true}
	for _, a := range k.Ancestors(sctid) {
		set[a] = true
	}
	return set
}
