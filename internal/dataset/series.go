package dataset

import (
	"fmt"
	"math"
	"sort"
)

// Series is a read-only view of one column. Aggregations skip nulls;
// materializing accessors return copies and charge the cell budget.
type Series struct {
	col    *column
	budget *budget
}

// Name returns the column name.
func (s *Series) Name() string { return s.col.name }

// Kind returns the inferred column kind.
func (s *Series) Kind() string { return s.col.kind.String() }

// Len returns the number of cells, nulls included.
func (s *Series) Len() int { return len(s.col.raw) }

// Count returns the number of non-null cells.
func (s *Series) Count() int {
	n := 0
	for _, isNull := range s.col.null {
		if !isNull {
			n++
		}
	}
	return n
}

// Cell returns the raw text of one cell and whether it is null. Like
// Frame.Cell this is a presentation accessor and charges no budget.
func (s *Series) Cell(i int) (string, bool) {
	return s.col.raw[i], s.col.null[i]
}

// NullCount returns the number of null cells.
func (s *Series) NullCount() int { return s.Len() - s.Count() }

// NUnique returns the number of distinct non-null values.
func (s *Series) NUnique() int {
	distinct := make(map[string]struct{})
	for i, cell := range s.col.raw {
		if !s.col.null[i] {
			distinct[cell] = struct{}{}
		}
	}
	return len(distinct)
}

func (s *Series) numericValues() []float64 {
	if s.col.kind != KindNumeric {
		panic(fmt.Sprintf("column %q is %s, not numeric", s.col.name, s.col.kind))
	}
	out := make([]float64, 0, len(s.col.nums))
	for _, v := range s.col.nums {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Sum returns the sum of the non-null values of a numeric column.
func (s *Series) Sum() float64 {
	var sum float64
	for _, v := range s.numericValues() {
		sum += v
	}
	return sum
}

// Mean returns the arithmetic mean, NaN for an all-null column.
func (s *Series) Mean() float64 {
	vals := s.numericValues()
	if len(vals) == 0 {
		return math.NaN()
	}
	return s.Sum() / float64(len(vals))
}

// Min returns the smallest non-null value, NaN for an all-null column.
func (s *Series) Min() float64 {
	vals := s.numericValues()
	if len(vals) == 0 {
		return math.NaN()
	}
	min := vals[0]
	for _, v := range vals[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// Max returns the largest non-null value, NaN for an all-null column.
func (s *Series) Max() float64 {
	vals := s.numericValues()
	if len(vals) == 0 {
		return math.NaN()
	}
	max := vals[0]
	for _, v := range vals[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// Median returns the middle value (mean of the two middle values for even
// counts), NaN for an all-null column.
func (s *Series) Median() float64 {
	vals := s.numericValues()
	if len(vals) == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return (vals[mid-1] + vals[mid]) / 2
}

// Std returns the population standard deviation, NaN below two values.
func (s *Series) Std() float64 {
	vals := s.numericValues()
	if len(vals) < 2 {
		return math.NaN()
	}
	mean := s.Mean()
	var sq float64
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)))
}

// Float64s returns a copy of the non-null numeric values.
func (s *Series) Float64s() []float64 {
	vals := s.numericValues()
	s.budget.charge(len(vals))
	return vals
}

// Strings returns a copy of the non-null cell texts.
func (s *Series) Strings() []string {
	out := make([]string, 0, len(s.col.raw))
	for i, cell := range s.col.raw {
		if !s.col.null[i] {
			out = append(out, cell)
		}
	}
	s.budget.charge(len(out))
	return out
}

// Unique returns the distinct non-null values in first-seen order.
func (s *Series) Unique() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for i, cell := range s.col.raw {
		if s.col.null[i] {
			continue
		}
		if _, ok := seen[cell]; ok {
			continue
		}
		seen[cell] = struct{}{}
		out = append(out, cell)
	}
	s.budget.charge(len(out))
	return out
}
