// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metamap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/cabinet/pkg/types"
)

// ErrNotMMI is returned by ParseMMI for lines that are not MMI records.
var ErrNotMMI = errors.New("not an MMI line")

const mmiFields = 9

// ParseMMILines parses every MMI record in lines. Lines of other types (such
// as AA abbreviation lines) are skipped; a malformed MMI line is an error.
func ParseMMILines(lines []string) ([]types.MMIRecord, error) {
	records := []types.MMIRecord{}
	for i, line := range lines {
		rec, err := ParseMMI(line)
		if errors.Is(err, ErrNotMMI) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ParseMMI parses one line of fielded MMI output:
//
//	id|MMI|score|preferred name|CUI|[semtypes]|triggers|location|positions|tree codes
//
// The tree codes field is optional.
func ParseMMI(line string) (types.MMIRecord, error) {
	parts := strings.Split(strings.TrimRight(line, "\r\n"), "|")
	if len(parts) < 2 || parts[1] != "MMI" {
		return types.MMIRecord{}, ErrNotMMI
	}
	if len(parts) < mmiFields {
		return types.MMIRecord{}, fmt.Errorf("MMI line has %d fields, want at least %d: %q", len(parts), mmiFields, line)
	}

	score, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return types.MMIRecord{}, fmt.Errorf("parsing MMI score %q: %w", parts[2], err)
	}

	rec := types.MMIRecord{
		ID:            parts[0],
		Score:         score,
		PreferredName: parts[3],
		CUI:           parts[4],
		SemanticTypes: splitList(strings.Trim(parts[5], "[]"), ","),
		Triggers:      parts[6],
		Location:      parts[7],
		Positions:     parts[8],
	}
	if len(parts) > mmiFields {
		rec.TreeCodes = splitList(parts[9], ";")
	}
	return rec, nil
}

func splitList(s, sep string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, sep)
}
