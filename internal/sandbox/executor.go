// Package sandbox executes validated analysis snippets against a dataset.
// Each execution gets a fresh yaegi interpreter, torn down afterwards, so no
// state crosses turns or sessions. Code reaches this package only after the
// policy gate allowed it; containment here is the host-enforced backstop:
// wall-clock timeout, cell budget, and a post-execution fingerprint check.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"datanerd/internal/dataset"
	"datanerd/internal/policy"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

var (
	// ErrTimeout reports an execution that exceeded the wall-clock limit.
	ErrTimeout = errors.New("execution timed out")
	// ErrResourceLimit reports an execution that exhausted its cell budget.
	ErrResourceLimit = errors.New("resource limit exceeded")
	// ErrMutation reports a dataset whose fingerprint changed during
	// execution. Callers treat it as a runtime failure.
	ErrMutation = errors.New("dataset mutated during execution")
	// ErrNoAnswer reports a snippet that never assigned the result binding.
	ErrNoAnswer = errors.New("snippet did not assign answer")
)

// Options configure the containment limits.
type Options struct {
	Timeout    time.Duration
	CellBudget int64
}

// DefaultOptions returns the standard limits: 5 seconds of wall clock and
// the dataset package's default cell budget.
func DefaultOptions() Options {
	return Options{
		Timeout:    5 * time.Second,
		CellBudget: dataset.DefaultCellBudget,
	}
}

// Executor runs accepted programs under containment. It holds no mutable
// state and is safe for concurrent use across sessions.
type Executor struct {
	opts Options
}

// NewExecutor creates an executor with the given limits. Zero fields fall
// back to defaults.
func NewExecutor(opts Options) *Executor {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.CellBudget <= 0 {
		opts.CellBudget = def.CellBudget
	}
	return &Executor{opts: opts}
}

// datasetSymbols exposes the dataset types to interpreted code. Only the
// read-only query surface travels across; loading and construction stay
// host-side.
func datasetSymbols() interp.Exports {
	return interp.Exports{
		"datanerd/internal/dataset/dataset": map[string]reflect.Value{
			"Frame":   reflect.ValueOf((*dataset.Frame)(nil)),
			"Series":  reflect.ValueOf((*dataset.Series)(nil)),
			"Grouped": reflect.ValueOf((*dataset.Grouped)(nil)),
		},
	}
}

// Run executes one program against the frame. Single attempt, no retries.
// Failure kinds: ErrTimeout, ErrResourceLimit, ErrMutation, ErrNoAnswer, or
// a generic error for snippets that crashed or misused the API.
func (e *Executor) Run(ctx context.Context, frame *dataset.Frame, prog *policy.Program) (interface{}, error) {
	if prog == nil {
		return nil, errors.New("nil program")
	}

	before := frame.Fingerprint()
	view := frame.WithBudget(e.opts.CellBudget)

	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		done <- evaluate(compose(prog), view)
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		if frame.Fingerprint() != before {
			return nil, ErrMutation
		}
		if out.value == nil {
			return nil, ErrNoAnswer
		}
		return out.value, nil
	case <-ctx.Done():
		// The interpreter goroutine is abandoned; the per-execution
		// interpreter and budget keep it from touching later turns.
		return nil, fmt.Errorf("%w after %s", ErrTimeout, e.opts.Timeout)
	}
}

type outcome struct {
	value interface{}
	err   error
}

func evaluate(src string, view *dataset.Frame) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{err: panicError(r)}
		}
	}()

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return outcome{err: fmt.Errorf("load stdlib symbols: %w", err)}
	}
	if err := i.Use(datasetSymbols()); err != nil {
		return outcome{err: fmt.Errorf("load dataset symbols: %w", err)}
	}

	if _, err := i.Eval(src); err != nil {
		return outcome{err: fmt.Errorf("snippet evaluation failed: %w", err)}
	}

	v, err := i.Eval("main.analyze")
	if err != nil {
		return outcome{err: fmt.Errorf("analyze entrypoint missing: %w", err)}
	}
	fn, ok := v.Interface().(func(*dataset.Frame) interface{})
	if !ok {
		return outcome{err: errors.New("analyze has an unexpected signature")}
	}

	return outcome{value: fn(view)}
}

// panicError maps a recovered panic to the containment error taxonomy.
// Budget exhaustion panics travel out of dataset methods called by
// interpreted code; everything else is a snippet runtime failure.
func panicError(r interface{}) error {
	if err, ok := r.(error); ok && errors.Is(err, dataset.ErrCellBudget) {
		return fmt.Errorf("%w: %v", ErrResourceLimit, err)
	}
	msg := fmt.Sprint(r)
	if strings.Contains(msg, dataset.ErrCellBudget.Error()) {
		return fmt.Errorf("%w: %s", ErrResourceLimit, msg)
	}
	return fmt.Errorf("snippet panicked: %s", msg)
}

// compose assembles the executable unit around an accepted program. The
// allowlisted helper packages are always pre-loaded so statement-only
// snippets can use them without their own import clauses, and the result
// binding is declared host-side.
func compose(prog *policy.Program) string {
	var b strings.Builder
	b.WriteString("package main\n\nimport (\n")
	b.WriteString("\t\"math\"\n\t\"sort\"\n\t\"strings\"\n\n")
	b.WriteString("\t\"datanerd/internal/dataset\"\n)\n\n")
	b.WriteString("var _, _, _ = math.Pi, sort.Ints, strings.TrimSpace\n\n")
	b.WriteString("func analyze(df *dataset.Frame) interface{} {\n")
	b.WriteString("\tvar answer interface{}\n")
	b.WriteString("\t_ = answer\n")
	b.WriteString(prog.Body)
	b.WriteString("\n\treturn answer\n}\n")
	return b.String()
}
