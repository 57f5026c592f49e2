// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stimulant

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Patterns holds the CDC stimulant search terms. Each term is a regular
// expression; matching is always case insensitive.
type Patterns struct {
	// Codes are ICD-10-CM codes such as "T40.5X1A". Each code matches both
	// with its dots and with the dots removed.
	Codes []string `json:"codes" yaml:"codes"`

	// Inclusion1 and Inclusion2 must both match.
	Inclusion1 []string `json:"inclusion1" yaml:"inclusion1"`
	Inclusion2 []string `json:"inclusion2" yaml:"inclusion2"`

	// Exclusion vetoes an inclusion match.
	Exclusion []string `json:"exclusion" yaml:"exclusion"`

	// Crack together with any of CrackPairs vetoes an inclusion match.
	Crack      string   `json:"crack" yaml:"crack"`
	CrackPairs []string `json:"crack_pairs" yaml:"crack_pairs"`

	// Rum together with Coke vetoes an inclusion match.
	Rum  string `json:"rum" yaml:"rum"`
	Coke string `json:"coke" yaml:"coke"`
}

// LoadPatterns reads patterns from a .json, .yaml, or .yml file.
func LoadPatterns(path string) (Patterns, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Patterns{}, fmt.Errorf("reading patterns: %w", err)
	}

	var p Patterns
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &p)
	default:
		err = json.Unmarshal(data, &p)
	}
	if err != nil {
		return Patterns{}, fmt.Errorf("parsing patterns %s: %w", path, err)
	}

	if err := p.Validate(); err != nil {
		return Patterns{}, fmt.Errorf("patterns %s: %w", path, err)
	}
	return p, nil
}

// Validate checks that the single-term fields are set.
func (p Patterns) Validate() error {
	var missing []string
	if p.Crack == "" {
		missing = append(missing, "crack")
	}
	if p.Rum == "" {
		missing = append(missing, "rum")
	}
	if p.Coke == "" {
		missing = append(missing, "coke")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// codeTerms expands each code into its dotted form, with dots escaped, and
// its undotted form.
func (p Patterns) codeTerms() []string {
	terms := make([]string, 0, 2*len(p.Codes))
	for _, code := range p.Codes {
		terms = append(terms, strings.ReplaceAll(code, ".", `\.`))
		terms = append(terms, strings.ReplaceAll(code, ".", ""))
	}
	return terms
}
