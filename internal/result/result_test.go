package result

import (
	"fmt"
	"math"
	"testing"

	"datanerd/internal/dataset"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeScalars(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"float mean", 35.0, "35"},
		{"fractional float", 3.25, "3.25"},
		{"nan", math.NaN(), "NaN"},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"bool", true, "true"},
		{"string", "north", "north"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.value)
			if got.Kind != KindScalar {
				t.Fatalf("kind = %s, want scalar", got.Kind)
			}
			if got.Scalar != tt.want {
				t.Errorf("scalar = %q, want %q", got.Scalar, tt.want)
			}
		})
	}
}

func TestNormalizeFrame(t *testing.T) {
	f, err := dataset.New(
		[]string{"region", "units"},
		[][]string{{"north", "10"}, {"south", ""}},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got := Normalize(f)
	if got.Kind != KindTable {
		t.Fatalf("kind = %s, want table", got.Kind)
	}
	want := &Table{
		Columns: []string{"region", "units"},
		Rows:    [][]string{{"north", "10"}, {"south", ""}},
	}
	if diff := cmp.Diff(want, got.Table); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeFrameTruncation(t *testing.T) {
	rows := make([][]string, MaxTableRows+20)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("%d", i)}
	}
	f, err := dataset.New([]string{"v"}, rows)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got := Normalize(f)
	if len(got.Table.Rows) != MaxTableRows {
		t.Errorf("rows = %d, want %d", len(got.Table.Rows), MaxTableRows)
	}
	if !got.Table.Truncated {
		t.Error("expected truncated flag")
	}
}

func TestNormalizeSeries(t *testing.T) {
	f, err := dataset.New([]string{"age"}, [][]string{{"30"}, {""}, {"40"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got := Normalize(f.Col("age"))
	want := &Table{Columns: []string{"age"}, Rows: [][]string{{"30"}, {""}, {"40"}}}
	if diff := cmp.Diff(want, got.Table); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeMapSortedByKey(t *testing.T) {
	got := Normalize(map[string]int{"west": 2, "east": 5, "north": 1})
	want := &Table{
		Columns: []string{"key", "value"},
		Rows:    [][]string{{"east", "5"}, {"north", "1"}, {"west", "2"}},
	}
	if diff := cmp.Diff(want, got.Table); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeSlices(t *testing.T) {
	got := Normalize([]float64{1, 2.5})
	want := &Table{Columns: []string{"value"}, Rows: [][]string{{"1"}, {"2.5"}}}
	if diff := cmp.Diff(want, got.Table); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeUnsupported(t *testing.T) {
	type opaque struct{ x int }

	for _, value := range []interface{}{nil, opaque{1}, make(chan int)} {
		got := Normalize(value)
		if got.Kind != KindError || got.Code != CodeUnsupportedResultShape {
			t.Errorf("Normalize(%T) = %s/%s, want error/unsupported_result_shape", value, got.Kind, got.Code)
		}
	}
}

func TestDenialCarriesReasons(t *testing.T) {
	reasons := []string{"disallowed_import: os", "unbounded_loop at line 2"}
	got := Denial(reasons)
	if got.OK() {
		t.Fatal("denial must not be OK")
	}
	if got.Code != CodePolicyViolation {
		t.Errorf("code = %s, want policy_violation", got.Code)
	}
	if diff := cmp.Diff(reasons, got.Reasons); diff != "" {
		t.Errorf("reasons mismatch (-want +got):\n%s", diff)
	}
}
