// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stimulant

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCDC(t *testing.T) *CDC {
	t.Helper()
	p, err := LoadPatterns(filepath.Join("testdata", "patterns.json"))
	require.NoError(t, err)
	c, err := NewCDC(p)
	require.NoError(t, err)
	return c
}

func TestLoadPatterns(t *testing.T) {
	fromJSON, err := LoadPatterns(filepath.Join("testdata", "patterns.json"))
	require.NoError(t, err)
	assert.Equal(t, []string{"T40.5X1A", "F14.10"}, fromJSON.Codes)
	assert.Equal(t, "crack", fromJSON.Crack)

	fromYAML, err := LoadPatterns(filepath.Join("testdata", "patterns.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"skull"}, fromYAML.CrackPairs)
	assert.Equal(t, "coke", fromYAML.Coke)
}

func TestLoadPatternsErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadPatterns(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = LoadPatterns(bad)
	assert.Error(t, err)

	incomplete := filepath.Join(dir, "incomplete.json")
	require.NoError(t, os.WriteFile(incomplete, []byte(`{"codes":["X"],"crack":"crack"}`), 0o644))
	_, err = LoadPatterns(incomplete)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing rum, coke")
}

func TestNewCDCBadRegex(t *testing.T) {
	_, err := NewCDC(Patterns{Inclusion1: []string{"("}, Crack: "c", Rum: "r", Coke: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inclusion1")
}

func TestMatch(t *testing.T) {
	c := testCDC(t)

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"dotted code", "dx T40.5X1A on arrival", true},
		{"undotted code", "dx t405x1a", true},
		{"code overrides exclusion", "denies use, F14.10", true},
		{"inclusion pair", "Cocaine overdose", true},
		{"regex term", "methamphetamine intoxication", true},
		{"word boundary", "stimulant OD in ED", true},
		{"only inclusion1", "cocaine use", false},
		{"only inclusion2", "opioid overdose", false},
		{"exclusion", "denies cocaine overdose", false},
		{"crack pair", "cocaine overdose, crack in skull", false},
		{"crack alone", "crack cocaine overdose", true},
		{"rum and coke", "rum and coke overdose of cocaine", false},
		{"coke alone", "coke overdose", false},
		{"empty", "", false},
		{"dot is literal", "T40X5X1A", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Match(tt.text)
			assert.Equal(t, tt.want, got.Signal)
			assert.Equal(t, tt.want, c.Trace(tt.text).Signal, "traced signal must agree")
		})
	}
}

func TestTraceCounts(t *testing.T) {
	c := testCDC(t)

	res := c.Trace("Cocaine, more cocaine, then crack to the rib and skull. Overdose.")
	assert.Equal(t, 2, res.Counts["cocaine"])
	assert.Equal(t, 1, res.Counts["crack"])
	assert.Equal(t, 1, res.Counts["rib"])
	assert.Equal(t, 1, res.Counts["overdose"])
	assert.Equal(t, 0, res.Counts["denies"])
	assert.True(t, res.Steps[StepCrackExclude])
	assert.False(t, res.Signal)
	assert.Nil(t, c.Match("x").Counts)
}

func TestEmptyGroupNeverMatches(t *testing.T) {
	c, err := NewCDC(Patterns{Inclusion1: []string{"cocaine"}, Crack: "crack", Rum: "rum", Coke: "coke"})
	require.NoError(t, err)

	res := c.Match("cocaine")
	assert.False(t, res.Steps[StepCodes])
	assert.False(t, res.Steps[StepInclusion2])
	assert.False(t, res.Signal)
}

func TestTerms(t *testing.T) {
	c, err := NewCDC(Patterns{Codes: []string{"A1.2"}, Inclusion1: []string{"x", "y"}, Inclusion2: []string{"x"}, Crack: "c", Rum: "r", Coke: "k"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A12", `A1\.2`, "c", "k", "r", "x", "y"}, c.Terms())
}

func TestSearchCSV(t *testing.T) {
	c := testCDC(t)
	in := "id,note\n1,cocaine overdose\n2,denies cocaine overdose\n3,\"F14.10, stable\"\n"

	var out strings.Builder
	summary, err := c.SearchCSV(context.Background(), strings.NewReader(in), &out, "note", false)
	require.NoError(t, err)
	assert.Equal(t, Summary{Rows: 3, Signals: 2}, summary)

	records, err := csv.NewReader(strings.NewReader(out.String())).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "note", "signal"}, records[0])
	assert.Equal(t, "true", records[1][2])
	assert.Equal(t, "false", records[2][2])
	assert.Equal(t, "true", records[3][2])
}

func TestSearchCSVTracing(t *testing.T) {
	c := testCDC(t)
	in := "note\ncocaine overdose\n"

	var out strings.Builder
	_, err := c.SearchCSV(context.Background(), strings.NewReader(in), &out, "note", true)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(out.String())).ReadAll()
	require.NoError(t, err)
	header := records[0]
	assert.Equal(t, []string{"note", "signal", StepCodes, StepInclusion1}, header[:4])
	assert.Len(t, header, 2+len(Steps)+len(c.Terms()))

	col := map[string]string{}
	for i, name := range header {
		col[name] = records[1][i]
	}
	assert.Equal(t, "true", col["signal"])
	assert.Equal(t, "1", col["cocaine"])
	assert.Equal(t, "0", col["crack"])
}

func TestSearchCSVShortRow(t *testing.T) {
	c := testCDC(t)
	in := "id,note,site\n1,cocaine overdose,ER\n2,cocaine overdose\n"

	var out strings.Builder
	summary, err := c.SearchCSV(context.Background(), strings.NewReader(in), &out, "note", false)
	require.NoError(t, err)
	assert.Equal(t, Summary{Rows: 2, Signals: 2}, summary)

	records, err := csv.NewReader(strings.NewReader(out.String())).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "note", "site", "signal"}, records[0])
	assert.Equal(t, []string{"1", "cocaine overdose", "ER", "true"}, records[1])
	assert.Equal(t, []string{"2", "cocaine overdose", "", "true"}, records[2])
}

func TestSearchCSVShortRowMissingColumn(t *testing.T) {
	c := testCDC(t)
	in := "id,site,note\n1,ER\n"

	var out strings.Builder
	summary, err := c.SearchCSV(context.Background(), strings.NewReader(in), &out, "note", false)
	require.NoError(t, err)
	assert.Equal(t, Summary{Rows: 1, Signals: 0}, summary)

	records, err := csv.NewReader(strings.NewReader(out.String())).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "ER", "", "false"}, records[1])
}

func TestSearchCSVWideRow(t *testing.T) {
	c := testCDC(t)
	in := "id,note\n1,cocaine overdose,extra\n"
	_, err := c.SearchCSV(context.Background(), strings.NewReader(in), &strings.Builder{}, "note", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1 has 3 fields")
}

func TestSearchCSVMissingColumn(t *testing.T) {
	c := testCDC(t)
	_, err := c.SearchCSV(context.Background(), strings.NewReader("id,text\n1,x\n"), &strings.Builder{}, "note", false)
	assert.ErrorIs(t, err, ErrColumnMissing)
}
