// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"fmt"
	"strings"
)

// LookupOptions holds parameters for store lookups.
type LookupOptions struct {
	// Query is the FTS5 full-text search string over preferred terms.
	Query string

	// CUI filters by UMLS concept identifier.
	CUI string

	// SCTID filters by SNOMED CT identifier.
	SCTID string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the lookup has no search terms or filters.
func (o LookupOptions) IsEmpty() bool {
	return o.Query == "" && o.CUI == "" && o.SCTID == ""
}

// Concept is one indexed CUI with its SNOMED CT code and preferred term.
type Concept struct {
	CUI     string   `json:"cui" yaml:"cui"`
	SCTID   string   `json:"sctid" yaml:"sctid"`
	Name    string   `json:"name" yaml:"name"`
	Parents []string `json:"parents,omitempty" yaml:"parents,omitempty"`
}

// Lookup queries the index. Full-text queries are ranked by relevance;
// filter-only lookups are sorted by CUI.
func (s *Store) Lookup(ctx context.Context, opts LookupOptions) ([]Concept, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT c.cui, c.sctid, c.name
			FROM concepts_fts
			JOIN concepts c ON c.rowid = concepts_fts.rowid
			WHERE concepts_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(`SELECT c.cui, c.sctid, c.name FROM concepts c WHERE 1=1`)
	}

	if opts.CUI != "" {
		qb.WriteString(` AND c.cui = ?`)
		args = append(args, opts.CUI)
	}
	if opts.SCTID != "" {
		qb.WriteString(` AND c.sctid = ?`)
		args = append(args, opts.SCTID)
	}

	if useFTS {
		qb.WriteString(` ORDER BY concepts_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY c.cui`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var results []Concept
	for rows.Next() {
		var c Concept
		if err := rows.Scan(&c.CUI, &c.SCTID, &c.Name); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range results {
		parents, err := s.Parents(ctx, results[i].SCTID)
		if err != nil {
			return nil, err
		}
		results[i].Parents = parents
	}
	return results, nil
}

// Parents returns the indexed is-a parents of sctid, sorted.
func (s *Store) Parents(ctx context.Context, sctid string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT parent FROM edges WHERE child = ? ORDER BY parent`, sctid)
	if err != nil {
		return nil, fmt.Errorf("querying parents: %w", err)
	}
	defer rows.Close()

	var parents []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		parents = append(parents, p)
	}
	return parents, rows.Err()
}
