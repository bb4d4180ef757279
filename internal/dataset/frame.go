// Package dataset holds the in-memory table a session analyzes. A Frame is
// immutable during analysis: every exported operation either reads or returns
// a derived copy, and the fingerprint lets callers verify that sandboxed code
// observed that contract.
package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

// ErrCellBudget aborts an execution whose materializing operations touched
// more cells than the host allows. The sandbox recovers it and reports
// ResourceLimitExceeded.
var ErrCellBudget = errors.New("cell budget exhausted")

// DefaultCellBudget bounds the cells a single execution may materialize.
const DefaultCellBudget = 1_000_000

// budget is host bookkeeping shared by every frame derived within one
// execution. It is excluded from the fingerprint.
type budget struct {
	remaining int64
}

func (b *budget) charge(cells int) {
	if b == nil {
		return
	}
	if atomic.AddInt64(&b.remaining, -int64(cells)) < 0 {
		panic(ErrCellBudget)
	}
}

// column is the owned storage for one column. raw keeps the original cell
// text; nums carries the parsed values for numeric columns (NaN on null).
type column struct {
	name string
	kind Kind
	raw  []string
	null []bool
	nums []float64
}

// Frame is a column-major table with inferred column kinds.
type Frame struct {
	cols   []*column
	byName map[string]int
	rows   int
	budget *budget
}

// New builds a frame from a header and row-major string cells. Empty cells
// are null. Column names must be unique.
func New(header []string, rows [][]string) (*Frame, error) {
	byName := make(map[string]int, len(header))
	cols := make([]*column, len(header))

	for i, name := range header {
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := byName[name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", name)
		}
		byName[name] = i

		raw := make([]string, len(rows))
		null := make([]bool, len(rows))
		for r, row := range rows {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			raw[r] = cell
			null[r] = cell == ""
		}

		col := &column{name: name, raw: raw, null: null}
		col.kind = inferKind(raw, null)
		if col.kind == KindNumeric {
			col.nums = make([]float64, len(raw))
			for r := range raw {
				col.nums[r] = math.NaN()
				if !null[r] {
					if v, ok := parseNumeric(raw[r]); ok {
						col.nums[r] = v
					}
				}
			}
		}
		cols[i] = col
	}

	return &Frame{
		cols:   cols,
		byName: byName,
		rows:   len(rows),
		budget: &budget{remaining: DefaultCellBudget},
	}, nil
}

// NumRows reports the row count.
func (f *Frame) NumRows() int { return f.rows }

// NumCols reports the column count.
func (f *Frame) NumCols() int { return len(f.cols) }

// Columns returns the column names in table order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.name
	}
	return names
}

// WithBudget returns a view sharing this frame's columns but carrying a fresh
// cell budget. The sandbox hands one view to each execution.
func (f *Frame) WithBudget(cells int64) *Frame {
	return &Frame{
		cols:   f.cols,
		byName: f.byName,
		rows:   f.rows,
		budget: &budget{remaining: cells},
	}
}

// Fingerprint hashes the column names, kinds and every cell. Two frames with
// identical content agree; any mutation by sandboxed code shows up as a
// mismatch after execution.
func (f *Frame) Fingerprint() string {
	h := sha256.New()
	for _, c := range f.cols {
		h.Write([]byte(c.name))
		h.Write([]byte{0, byte(c.kind)})
		for i, cell := range c.raw {
			if c.null[i] {
				h.Write([]byte{1})
			} else {
				h.Write([]byte{0})
				h.Write([]byte(cell))
			}
			h.Write([]byte{0xff})
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Cell returns the raw text of one cell and whether it is null. Presentation
// code reads cells directly; unlike the query API this does not charge the
// budget, which only meters what sandboxed snippets materialize.
func (f *Frame) Cell(row, col int) (string, bool) {
	c := f.cols[col]
	return c.raw[row], c.null[row]
}

func (f *Frame) col(name string) *column {
	idx, ok := f.byName[name]
	if !ok {
		panic(fmt.Sprintf("unknown column %q (have %v)", name, f.Columns()))
	}
	return f.cols[idx]
}

// derive assembles a new frame from the given row indexes of f, copying cell
// storage so derived frames never alias the original.
func (f *Frame) derive(cols []*column, indexes []int) *Frame {
	f.budget.charge(len(cols) * len(indexes))

	out := make([]*column, len(cols))
	byName := make(map[string]int, len(cols))
	for i, c := range cols {
		nc := &column{name: c.name, kind: c.kind}
		nc.raw = make([]string, len(indexes))
		nc.null = make([]bool, len(indexes))
		if c.nums != nil {
			nc.nums = make([]float64, len(indexes))
		}
		for j, idx := range indexes {
			nc.raw[j] = c.raw[idx]
			nc.null[j] = c.null[idx]
			if c.nums != nil {
				nc.nums[j] = c.nums[idx]
			}
		}
		out[i] = nc
		byName[c.name] = i
	}

	return &Frame{cols: out, byName: byName, rows: len(indexes), budget: f.budget}
}
