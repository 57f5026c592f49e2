// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stimulant

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrColumnMissing is returned when the search column is not in the header.
var ErrColumnMissing = errors.New("column not found")

// Summary counts the records processed by SearchCSV.
type Summary struct {
	Rows    int
	Signals int
}

// SearchCSV reads CSV records from r, runs the algorithm on the named column,
// and writes every record to w with a "signal" column appended. When tracing
// is set the step columns and one count column per term are appended too.
// Short records are padded with empty fields to the header width; records
// wider than the header are an error.
func (c *CDC) SearchCSV(ctx context.Context, r io.Reader, w io.Writer, column string, tracing bool) (Summary, error) {
	var summary Summary

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return summary, fmt.Errorf("reading header: %w", err)
	}

	col := -1
	for i, name := range header {
		if name == column {
			col = i
			break
		}
	}
	if col < 0 {
		return summary, fmt.Errorf("%w: %q", ErrColumnMissing, column)
	}

	var terms []string
	out := append([]string{}, header...)
	out = append(out, "signal")
	if tracing {
		terms = c.Terms()
		out = append(out, Steps...)
		out = append(out, terms...)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(out); err != nil {
		return summary, fmt.Errorf("writing header: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, fmt.Errorf("reading row %d: %w", summary.Rows+1, err)
		}

		if len(rec) > len(header) {
			return summary, fmt.Errorf("row %d has %d fields, header has %d", summary.Rows+1, len(rec), len(header))
		}
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		text := rec[col]

		var res Result
		if tracing {
			res = c.Trace(text)
		} else {
			res = c.Match(text)
		}

		row := append(rec, strconv.FormatBool(res.Signal))
		if tracing {
			for _, s := range Steps {
				row = append(row, strconv.FormatBool(res.Steps[s]))
			}
			for _, t := range terms {
				row = append(row, strconv.Itoa(res.Counts[t]))
			}
		}
		if err := cw.Write(row); err != nil {
			return summary, fmt.Errorf("writing row %d: %w", summary.Rows+1, err)
		}

		summary.Rows++
		if res.Signal {
			summary.Signals++
		}
	}

	cw.Flush()
	return summary, cw.Error()
}
