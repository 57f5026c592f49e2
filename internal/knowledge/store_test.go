// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/cabinet/internal/pkgdata"
	"github.com/pdiddy/cabinet/pkg/types"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	dataDir := t.TempDir()
	writePackageData(t, dataDir, true)

	store, err := NewStore(types.KnowledgeConfig{DataDir: dataDir, MaxResults: 20})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, dataDir
}

func indexStore(t *testing.T, store *Store) IndexSummary {
	t.Helper()
	var out strings.Builder
	summary, err := store.Index(context.Background(), &out)
	require.NoError(t, err)
	return summary
}

func TestNewStoreCreatesIndexDir(t *testing.T) {
	store, dataDir := testStore(t)
	assert.Equal(t, filepath.Join(dataDir, "index"), store.indexDir)

	_, err := os.Stat(filepath.Join(dataDir, "index", dbFile))
	assert.NoError(t, err)
}

func TestIndexIncremental(t *testing.T) {
	store, dataDir := testStore(t)

	summary := indexStore(t, store)
	assert.Equal(t, 2, summary.Indexed)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 3+7, summary.Rows)

	summary = indexStore(t, store)
	assert.Equal(t, 0, summary.Indexed)
	assert.Equal(t, 2, summary.Skipped)

	// Touch only the tree; concepts stay indexed.
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dataDir, pkgdata.SnomedTreeFile), future, future))

	summary = indexStore(t, store)
	assert.Equal(t, 1, summary.Indexed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 7, summary.Rows)
}

func TestIndexMissingData(t *testing.T) {
	store, err := NewStore(types.KnowledgeConfig{DataDir: t.TempDir()})
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Index(context.Background(), &strings.Builder{})
	require.Error(t, err)
}

func TestLookup(t *testing.T) {
	store, _ := testStore(t)
	indexStore(t, store)
	ctx := context.Background()

	tests := []struct {
		name string
		opts LookupOptions
		want []string
	}{
		{"full text", LookupOptions{Query: "asthma"}, []string{"C0004096"}},
		{"by cui", LookupOptions{CUI: "C0012634"}, []string{"C0012634"}},
		{"by sctid", LookupOptions{SCTID: "50043002"}, []string{"C0035204"}},
		{"all sorted", LookupOptions{}, []string{"C0004096", "C0012634", "C0035204"}},
		{"limited", LookupOptions{MaxResults: 1}, []string{"C0004096"}},
		{"no match", LookupOptions{Query: "fracture"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := store.Lookup(ctx, tt.opts)
			require.NoError(t, err)
			var cuis []string
			for _, r := range results {
				cuis = append(cuis, r.CUI)
			}
			assert.Equal(t, tt.want, cuis)
		})
	}
}

func TestLookupIncludesParents(t *testing.T) {
	store, _ := testStore(t)
	indexStore(t, store)

	results, err := store.Lookup(context.Background(), LookupOptions{CUI: "C0004096"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, Concept{
		CUI:     "C0004096",
		SCTID:   "195967001",
		Name:    "Asthma",
		Parents: []string{"50043002", "64572001"},
	}, results[0])
}

func TestLookupOptionsIsEmpty(t *testing.T) {
	assert.True(t, LookupOptions{MaxResults: 5}.IsEmpty())
	assert.False(t, LookupOptions{SCTID: "1"}.IsEmpty())
}

func TestExport(t *testing.T) {
	store, dataDir := testStore(t)
	indexStore(t, store)
	ctx := context.Background()

	path, err := store.ExportYAML(ctx, LookupOptions{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataDir, "index", "export.yaml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var fromYAML []Concept
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	assert.Len(t, fromYAML, 3)

	path, err = store.ExportJSON(ctx, LookupOptions{Query: "nothing"})
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	var fromJSON []Concept
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Empty(t, fromJSON)
	assert.Equal(t, "[]", strings.TrimSpace(string(data)))
}
