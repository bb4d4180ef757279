package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Query API exposed to sandboxed snippets. Everything here is read-only:
// derived frames and returned slices are copies. Misuse (unknown column,
// bad operator, non-numeric aggregation) panics with a descriptive message,
// which the sandbox surfaces as a runtime failure for that turn.

// Col returns the named column as a Series.
func (f *Frame) Col(name string) *Series {
	c := f.col(name)
	return &Series{col: c, budget: f.budget}
}

// Head returns the first n rows (all rows when n exceeds the row count).
func (f *Frame) Head(n int) *Frame {
	if n < 0 {
		n = 0
	}
	if n > f.rows {
		n = f.rows
	}
	indexes := make([]int, n)
	for i := range indexes {
		indexes[i] = i
	}
	return f.derive(f.cols, indexes)
}

// Select returns a frame restricted to the named columns, in the given order.
func (f *Frame) Select(names ...string) *Frame {
	cols := make([]*column, len(names))
	for i, name := range names {
		cols[i] = f.col(name)
	}
	indexes := make([]int, f.rows)
	for i := range indexes {
		indexes[i] = i
	}
	return f.derive(cols, indexes)
}

// Where filters rows by comparing a column against a value. Supported
// operators: ==, !=, >, >=, <, <=, contains. Numeric columns compare
// numerically; everything else compares as text. Null cells never match.
func (f *Frame) Where(name, op string, value interface{}) *Frame {
	c := f.col(name)
	var indexes []int
	for i := 0; i < f.rows; i++ {
		if c.null[i] {
			continue
		}
		if matches(c, i, op, value) {
			indexes = append(indexes, i)
		}
	}
	return f.derive(f.cols, indexes)
}

func matches(c *column, i int, op string, value interface{}) bool {
	if c.kind == KindNumeric {
		if want, ok := toFloat(value); ok {
			got := c.nums[i]
			switch op {
			case "==":
				return got == want
			case "!=":
				return got != want
			case ">":
				return got > want
			case ">=":
				return got >= want
			case "<":
				return got < want
			case "<=":
				return got <= want
			}
		}
	}

	got := c.raw[i]
	want := fmt.Sprint(value)
	switch op {
	case "==":
		return got == want
	case "!=":
		return got != want
	case ">":
		return got > want
	case ">=":
		return got >= want
	case "<":
		return got < want
	case "<=":
		return got <= want
	case "contains":
		return strings.Contains(strings.ToLower(got), strings.ToLower(want))
	}
	panic(fmt.Sprintf("unsupported operator %q", op))
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		return parseNumeric(v)
	}
	return 0, false
}

// SortBy returns the frame ordered by a column. Numeric columns sort by
// value with nulls last; other kinds sort lexically.
func (f *Frame) SortBy(name string, ascending bool) *Frame {
	c := f.col(name)
	indexes := make([]int, f.rows)
	for i := range indexes {
		indexes[i] = i
	}

	less := func(a, b int) bool {
		if c.kind == KindNumeric {
			x, y := c.nums[a], c.nums[b]
			if math.IsNaN(x) {
				return false
			}
			if math.IsNaN(y) {
				return true
			}
			return x < y
		}
		return c.raw[a] < c.raw[b]
	}
	sort.SliceStable(indexes, func(i, j int) bool {
		if ascending {
			return less(indexes[i], indexes[j])
		}
		return less(indexes[j], indexes[i])
	})

	return f.derive(f.cols, indexes)
}

// ValueCounts returns a two-column frame (value, count) for the named
// column, most frequent first.
func (f *Frame) ValueCounts(name string) *Frame {
	c := f.col(name)
	counts := make(map[string]int)
	order := make([]string, 0)
	for i := 0; i < f.rows; i++ {
		if c.null[i] {
			continue
		}
		if _, seen := counts[c.raw[i]]; !seen {
			order = append(order, c.raw[i])
		}
		counts[c.raw[i]]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

	f.budget.charge(len(order) * 2)
	rows := make([][]string, len(order))
	for i, v := range order {
		rows[i] = []string{v, fmt.Sprintf("%d", counts[v])}
	}
	out, err := New([]string{name, countLabel(name)}, rows)
	if err != nil {
		panic(err)
	}
	out.budget = f.budget
	return out
}

// countLabel names the synthesized count column, stepping aside when the
// source column is itself named "count" so the derived frame keeps unique
// column names.
func countLabel(taken string) string {
	label := "count"
	if label == taken {
		label = "count_"
	}
	return label
}

// GroupBy groups rows by the distinct values of a column.
func (f *Frame) GroupBy(name string) *Grouped {
	c := f.col(name)
	groups := make(map[string][]int)
	order := make([]string, 0)
	for i := 0; i < f.rows; i++ {
		if c.null[i] {
			continue
		}
		key := c.raw[i]
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}
	return &Grouped{frame: f, key: name, order: order, groups: groups}
}

// Grouped is the result of Frame.GroupBy, ready to aggregate.
type Grouped struct {
	frame  *Frame
	key    string
	order  []string
	groups map[string][]int
}

// Sum aggregates a numeric column per group.
func (g *Grouped) Sum(name string) *Frame { return g.aggregate(name, "sum") }

// Mean aggregates a numeric column per group.
func (g *Grouped) Mean(name string) *Frame { return g.aggregate(name, "mean") }

// Min aggregates a numeric column per group.
func (g *Grouped) Min(name string) *Frame { return g.aggregate(name, "min") }

// Max aggregates a numeric column per group.
func (g *Grouped) Max(name string) *Frame { return g.aggregate(name, "max") }

// Count returns the group sizes.
func (g *Grouped) Count() *Frame {
	g.frame.budget.charge(len(g.order) * 2)
	rows := make([][]string, len(g.order))
	for i, key := range g.order {
		rows[i] = []string{key, fmt.Sprintf("%d", len(g.groups[key]))}
	}
	out, err := New([]string{g.key, countLabel(g.key)}, rows)
	if err != nil {
		panic(err)
	}
	out.budget = g.frame.budget
	return out
}

func (g *Grouped) aggregate(name, fn string) *Frame {
	c := g.frame.col(name)
	if c.kind != KindNumeric {
		panic(fmt.Sprintf("cannot aggregate non-numeric column %q", name))
	}

	g.frame.budget.charge(len(g.order) * 2)
	rows := make([][]string, len(g.order))
	for i, key := range g.order {
		var sum float64
		count := 0
		min, max := math.Inf(1), math.Inf(-1)
		for _, idx := range g.groups[key] {
			v := c.nums[idx]
			if math.IsNaN(v) {
				continue
			}
			sum += v
			count++
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}

		var agg float64
		switch fn {
		case "sum":
			agg = sum
		case "mean":
			if count > 0 {
				agg = sum / float64(count)
			} else {
				agg = math.NaN()
			}
		case "min":
			agg = min
		case "max":
			agg = max
		}
		rows[i] = []string{key, formatFloat(agg)}
	}

	valueName := name
	if valueName == g.key {
		// Grouping a column by itself would duplicate the name.
		valueName = name + "_" + fn
	}
	out, err := New([]string{g.key, valueName}, rows)
	if err != nil {
		panic(err)
	}
	out.budget = g.frame.budget
	return out
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
