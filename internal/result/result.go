// Package result normalizes what an analysis turn produced into a small
// envelope: a scalar, a bounded table, or a categorized error. Every turn
// yields exactly one Result, so the session log and any frontend see a single
// uniform shape regardless of what the snippet computed.
package result

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"datanerd/internal/dataset"
)

// Kind says which envelope field carries the payload.
type Kind int

const (
	KindScalar Kind = iota
	KindTable
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindTable:
		return "table"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the kind as its name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON accepts the name form written by MarshalJSON.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for _, cand := range []Kind{KindScalar, KindTable, KindError} {
		if cand.String() == name {
			*k = cand
			return nil
		}
	}
	return fmt.Errorf("unknown result kind %q", name)
}

// ErrorCode categorizes a failed turn. Codes are stable identifiers; the
// human explanation travels in Result.Message.
type ErrorCode int

const (
	CodeNone ErrorCode = iota
	CodeParseError
	CodePolicyViolation
	CodeTimeout
	CodeResourceLimitExceeded
	CodeRuntimeFailure
	CodeUnsupportedResultShape
	CodeLLMUnavailable
)

func (c ErrorCode) String() string {
	switch c {
	case CodeNone:
		return "none"
	case CodeParseError:
		return "parse_error"
	case CodePolicyViolation:
		return "policy_violation"
	case CodeTimeout:
		return "timeout"
	case CodeResourceLimitExceeded:
		return "resource_limit_exceeded"
	case CodeRuntimeFailure:
		return "runtime_failure"
	case CodeUnsupportedResultShape:
		return "unsupported_result_shape"
	case CodeLLMUnavailable:
		return "llm_unavailable"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the code as its name.
func (c ErrorCode) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts the name form written by MarshalJSON.
func (c *ErrorCode) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for cand := CodeNone; cand <= CodeLLMUnavailable; cand++ {
		if cand.String() == name {
			*c = cand
			return nil
		}
	}
	return fmt.Errorf("unknown error code %q", name)
}

// Table bounds for the envelope. Larger computed tables are cut down and
// flagged, never rejected.
const (
	MaxTableRows = 100
	MaxTableCols = 50
)

// Table is a rendered tabular payload. Cells are display text; null cells
// render empty.
type Table struct {
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	Truncated bool       `json:"truncated,omitempty"`
}

// Result is the envelope for one turn.
type Result struct {
	Kind    Kind      `json:"kind"`
	Scalar  string    `json:"scalar,omitempty"`
	Table   *Table    `json:"table,omitempty"`
	Code    ErrorCode `json:"code,omitempty"`
	Message string    `json:"message,omitempty"`
	Reasons []string  `json:"reasons,omitempty"`
}

// OK reports whether the turn produced a value.
func (r *Result) OK() bool { return r.Kind != KindError }

// Failure builds an error envelope.
func Failure(code ErrorCode, message string) *Result {
	return &Result{Kind: KindError, Code: code, Message: message}
}

// Denial builds the envelope for a turn the policy gate refused, carrying
// every collected reason.
func Denial(reasons []string) *Result {
	return &Result{
		Kind:    KindError,
		Code:    CodePolicyViolation,
		Message: "generated code was rejected before execution",
		Reasons: reasons,
	}
}

// Normalize classifies a raw sandbox value into the envelope. Frames, series,
// slices and string-keyed maps become tables; numbers, booleans and strings
// become scalars; anything else is an unsupported shape.
func Normalize(value interface{}) *Result {
	switch v := value.(type) {
	case nil:
		return Failure(CodeUnsupportedResultShape, "snippet produced no value")
	case *dataset.Frame:
		return &Result{Kind: KindTable, Table: fromFrame(v)}
	case *dataset.Series:
		return &Result{Kind: KindTable, Table: fromSeries(v)}
	case bool:
		return scalar(strconv.FormatBool(v))
	case string:
		return scalar(v)
	case int:
		return scalar(strconv.Itoa(v))
	case int32:
		return scalar(strconv.FormatInt(int64(v), 10))
	case int64:
		return scalar(strconv.FormatInt(v, 10))
	case uint:
		return scalar(strconv.FormatUint(uint64(v), 10))
	case uint64:
		return scalar(strconv.FormatUint(v, 10))
	case float32:
		return scalar(formatFloat(float64(v)))
	case float64:
		return scalar(formatFloat(v))
	case []string:
		return &Result{Kind: KindTable, Table: fromList(v)}
	case []float64:
		cells := make([]string, len(v))
		for i, f := range v {
			cells[i] = formatFloat(f)
		}
		return &Result{Kind: KindTable, Table: fromList(cells)}
	case []int:
		cells := make([]string, len(v))
		for i, n := range v {
			cells[i] = strconv.Itoa(n)
		}
		return &Result{Kind: KindTable, Table: fromList(cells)}
	case map[string]int:
		pairs := make(map[string]string, len(v))
		for k, n := range v {
			pairs[k] = strconv.Itoa(n)
		}
		return &Result{Kind: KindTable, Table: fromMap(pairs)}
	case map[string]float64:
		pairs := make(map[string]string, len(v))
		for k, f := range v {
			pairs[k] = formatFloat(f)
		}
		return &Result{Kind: KindTable, Table: fromMap(pairs)}
	case map[string]string:
		return &Result{Kind: KindTable, Table: fromMap(v)}
	default:
		return Failure(CodeUnsupportedResultShape, fmt.Sprintf("cannot represent a %T result", value))
	}
}

func scalar(text string) *Result {
	return &Result{Kind: KindScalar, Scalar: text}
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 && !math.IsInf(v, 0) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func fromFrame(f *dataset.Frame) *Table {
	rows := f.NumRows()
	cols := f.NumCols()
	truncated := false
	if rows > MaxTableRows {
		rows = MaxTableRows
		truncated = true
	}
	if cols > MaxTableCols {
		cols = MaxTableCols
		truncated = true
	}

	t := &Table{
		Columns:   f.Columns()[:cols],
		Rows:      make([][]string, rows),
		Truncated: truncated,
	}
	for r := 0; r < rows; r++ {
		row := make([]string, cols)
		for c := 0; c < cols; c++ {
			cell, null := f.Cell(r, c)
			if !null {
				row[c] = cell
			}
		}
		t.Rows[r] = row
	}
	return t
}

func fromSeries(s *dataset.Series) *Table {
	rows := s.Len()
	truncated := false
	if rows > MaxTableRows {
		rows = MaxTableRows
		truncated = true
	}

	t := &Table{
		Columns:   []string{s.Name()},
		Rows:      make([][]string, rows),
		Truncated: truncated,
	}
	for i := 0; i < rows; i++ {
		cell, null := s.Cell(i)
		if null {
			cell = ""
		}
		t.Rows[i] = []string{cell}
	}
	return t
}

func fromList(cells []string) *Table {
	truncated := false
	if len(cells) > MaxTableRows {
		cells = cells[:MaxTableRows]
		truncated = true
	}
	t := &Table{Columns: []string{"value"}, Rows: make([][]string, len(cells)), Truncated: truncated}
	for i, c := range cells {
		t.Rows[i] = []string{c}
	}
	return t
}

// fromMap renders key/value pairs sorted by key so map iteration order never
// leaks into the envelope.
func fromMap(pairs map[string]string) *Table {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	truncated := false
	if len(keys) > MaxTableRows {
		keys = keys[:MaxTableRows]
		truncated = true
	}
	t := &Table{Columns: []string{"key", "value"}, Rows: make([][]string, len(keys)), Truncated: truncated}
	for i, k := range keys {
		t.Rows[i] = []string{k, pairs[k]}
	}
	return t
}
