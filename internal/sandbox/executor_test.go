package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"datanerd/internal/dataset"
	"datanerd/internal/policy"

	"go.uber.org/goleak"
)

func peopleFrame(t *testing.T) *dataset.Frame {
	t.Helper()
	f, err := dataset.New(
		[]string{"name", "age"},
		[][]string{{"a", "30"}, {"b", "40"}},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func mustProgram(t *testing.T, code string) *policy.Program {
	t.Helper()
	verdict, prog := policy.NewGate().Inspect(code)
	if !verdict.Allowed {
		t.Fatalf("gate rejected test snippet: %v", verdict.Reasons())
	}
	return prog
}

func TestRunMeanOfColumn(t *testing.T) {
	defer goleak.VerifyNone(t)

	exec := NewExecutor(Options{})
	frame := peopleFrame(t)
	prog := mustProgram(t, `answer = df.Col("age").Mean()`)

	value, err := exec.Run(context.Background(), frame, prog)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, ok := value.(float64); !ok || got != 35.0 {
		t.Fatalf("value = %#v, want 35.0", value)
	}
}

func TestRunDeterministic(t *testing.T) {
	exec := NewExecutor(Options{})
	frame := peopleFrame(t)
	prog := mustProgram(t, `answer = df.Col("age").Sum()`)

	first, err := exec.Run(context.Background(), frame, prog)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := exec.Run(context.Background(), frame, prog)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first != second {
		t.Fatalf("results differ: %v vs %v", first, second)
	}
}

func TestRunLeavesFrameUnchanged(t *testing.T) {
	exec := NewExecutor(Options{})
	frame := peopleFrame(t)
	before := frame.Fingerprint()

	prog := mustProgram(t, `rows := df.Where("age", ">", 20).SortBy("age", false)
answer = rows`)
	if _, err := exec.Run(context.Background(), frame, prog); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if frame.Fingerprint() != before {
		t.Fatal("frame fingerprint changed across execution")
	}
}

func TestRunReturnsDerivedFrame(t *testing.T) {
	exec := NewExecutor(Options{})
	frame := peopleFrame(t)
	prog := mustProgram(t, `answer = df.Where("age", ">=", 40)`)

	value, err := exec.Run(context.Background(), frame, prog)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	derived, ok := value.(*dataset.Frame)
	if !ok {
		t.Fatalf("value = %T, want *dataset.Frame", value)
	}
	if derived.NumRows() != 1 {
		t.Errorf("derived rows = %d, want 1", derived.NumRows())
	}
}

func TestRunCellBudget(t *testing.T) {
	exec := NewExecutor(Options{CellBudget: 3})
	frame := peopleFrame(t)
	prog := mustProgram(t, `answer = df.Head(2)`)

	_, err := exec.Run(context.Background(), frame, prog)
	if !errors.Is(err, ErrResourceLimit) {
		t.Fatalf("err = %v, want ErrResourceLimit", err)
	}
}

func TestRunRuntimeFailure(t *testing.T) {
	exec := NewExecutor(Options{})
	frame := peopleFrame(t)
	prog := mustProgram(t, `answer = df.Col("salary").Mean()`)

	_, err := exec.Run(context.Background(), frame, prog)
	if err == nil || !strings.Contains(err.Error(), "unknown column") {
		t.Fatalf("err = %v, want unknown column failure", err)
	}
}

func TestRunNoAnswer(t *testing.T) {
	exec := NewExecutor(Options{})
	frame := peopleFrame(t)
	prog := mustProgram(t, `x := df.NumRows()
_ = x`)

	_, err := exec.Run(context.Background(), frame, prog)
	if !errors.Is(err, ErrNoAnswer) {
		t.Fatalf("err = %v, want ErrNoAnswer", err)
	}
}

func TestRunCanceledContext(t *testing.T) {
	exec := NewExecutor(Options{})

	rows := make([][]string, 20000)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("%d", i)}
	}
	frame, err := dataset.New([]string{"v"}, rows)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	prog := mustProgram(t, `total := 0.0
for _, v := range df.Col("v").Float64s() {
	total += math.Sqrt(v)
}
answer = total`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := exec.Run(ctx, frame, prog); !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}
