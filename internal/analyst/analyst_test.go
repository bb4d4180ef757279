package analyst

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"datanerd/internal/dataset"
	"datanerd/internal/llm"
	"datanerd/internal/policy"
	"datanerd/internal/prompt"
	"datanerd/internal/result"
	"datanerd/internal/sandbox"
	"datanerd/internal/session"
	"datanerd/internal/store"

	"go.uber.org/goleak"
)

const peopleCSV = "name,age\nann,30\nbob,40\n"

// scriptedLLM returns canned responses in order.
type scriptedLLM struct {
	replies []string
	err     error
	calls   int
}

func (s *scriptedLLM) Complete(ctx context.Context, p string) (string, error) {
	return s.CompleteWithSystem(ctx, "", p)
}

func (s *scriptedLLM) CompleteWithSystem(ctx context.Context, system, p string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	reply := s.replies[s.calls%len(s.replies)]
	s.calls++
	return reply, nil
}

// recordingRunner wraps the real executor and counts invocations.
type recordingRunner struct {
	inner Runner
	runs  int
}

func (r *recordingRunner) Run(ctx context.Context, frame *dataset.Frame, prog *policy.Program) (interface{}, error) {
	r.runs++
	return r.inner.Run(ctx, frame, prog)
}

func newAnalyst(t *testing.T, client llm.Client, runner Runner) (*Analyst, *session.Session) {
	t.Helper()
	b, err := prompt.NewBuilder()
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	m := session.NewManager(2)
	s, err := m.Open([]byte(peopleCSV))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return New(Options{Manager: m, Client: client, Prompts: b, Runner: runner}), s
}

func fenced(code string) string {
	return "Here you go:\n```go\n" + code + "\n```\n"
}

func TestAskComputesScalar(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))

	client := &scriptedLLM{replies: []string{fenced(`answer = df.Col("age").Mean()`)}}
	a, s := newAnalyst(t, client, nil)

	turn := a.Ask(context.Background(), s, "what is the average age?")

	if !turn.Allowed {
		t.Fatalf("turn rejected: %v", turn.Reasons)
	}
	if turn.Result.Kind != result.KindScalar || turn.Result.Scalar != "35" {
		t.Fatalf("result = %+v, want scalar 35", turn.Result)
	}
	if s.TurnCount() != 1 {
		t.Errorf("turn count = %d, want 1", s.TurnCount())
	}
}

func TestAskDeniedCodeNeverExecutes(t *testing.T) {
	client := &scriptedLLM{replies: []string{fenced("import \"os\"\nanswer = os.Getenv(\"HOME\")")}}
	runner := &recordingRunner{inner: sandbox.NewExecutor(sandbox.Options{})}
	a, s := newAnalyst(t, client, runner)

	turn := a.Ask(context.Background(), s, "what is my home directory?")

	if turn.Allowed {
		t.Fatal("expected denial")
	}
	if turn.Result.Code != result.CodePolicyViolation {
		t.Errorf("code = %s, want policy_violation", turn.Result.Code)
	}
	if len(turn.Reasons) == 0 {
		t.Error("denial must carry reasons")
	}
	if runner.runs != 0 {
		t.Errorf("executor ran %d times for denied code", runner.runs)
	}
	// The denied turn is still logged.
	if s.TurnCount() != 1 {
		t.Errorf("turn count = %d, want 1", s.TurnCount())
	}
}

func TestAskLLMUnavailable(t *testing.T) {
	client := &scriptedLLM{err: fmt.Errorf("%w: connection refused", llm.ErrUnavailable)}
	runner := &recordingRunner{inner: sandbox.NewExecutor(sandbox.Options{})}
	a, s := newAnalyst(t, client, runner)

	turn := a.Ask(context.Background(), s, "anything")

	if turn.Result.Code != result.CodeLLMUnavailable {
		t.Errorf("code = %s, want llm_unavailable", turn.Result.Code)
	}
	if runner.runs != 0 {
		t.Error("nothing should execute without generated code")
	}
}

func TestAskRuntimeFailure(t *testing.T) {
	client := &scriptedLLM{replies: []string{fenced(`answer = df.Col("salary").Mean()`)}}
	a, s := newAnalyst(t, client, nil)

	turn := a.Ask(context.Background(), s, "average salary?")

	if !turn.Allowed {
		t.Fatalf("gate should allow this snippet: %v", turn.Reasons)
	}
	if turn.Result.Code != result.CodeRuntimeFailure {
		t.Errorf("code = %s, want runtime_failure", turn.Result.Code)
	}
}

func TestAskMapsSandboxErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want result.ErrorCode
	}{
		{"timeout", sandbox.ErrTimeout, result.CodeTimeout},
		{"budget", sandbox.ErrResourceLimit, result.CodeResourceLimitExceeded},
		{"mutation", sandbox.ErrMutation, result.CodeRuntimeFailure},
		{"no answer", sandbox.ErrNoAnswer, result.CodeRuntimeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &scriptedLLM{replies: []string{fenced(`answer = df.NumRows()`)}}
			a, s := newAnalyst(t, client, failingRunner{tt.err})

			turn := a.Ask(context.Background(), s, "q")
			if turn.Result.Code != tt.want {
				t.Errorf("code = %s, want %s", turn.Result.Code, tt.want)
			}
		})
	}
}

type failingRunner struct{ err error }

func (f failingRunner) Run(ctx context.Context, frame *dataset.Frame, prog *policy.Program) (interface{}, error) {
	return nil, f.err
}

func TestAskFollowupSeesHistory(t *testing.T) {
	client := &scriptedLLM{replies: []string{
		fenced(`answer = df.Col("age").Mean()`),
		fenced(`answer = df.Col("age").Max()`),
	}}
	a, s := newAnalyst(t, client, nil)

	a.Ask(context.Background(), s, "average age?")
	turn := a.Ask(context.Background(), s, "and the maximum?")

	if turn.Result.Scalar != "40" {
		t.Errorf("scalar = %q, want 40", turn.Result.Scalar)
	}
	turns := s.Turns()
	if len(turns) != 2 {
		t.Fatalf("turn count = %d, want 2", len(turns))
	}
	if turns[0].Question != "average age?" || turns[1].Question != "and the maximum?" {
		t.Error("turns out of order")
	}
}

func TestAskArchivesTurns(t *testing.T) {
	archive, err := store.Open(filepath.Join(t.TempDir(), "turns.db"))
	if err != nil {
		t.Fatalf("Open archive: %v", err)
	}
	defer archive.Close()

	b, err := prompt.NewBuilder()
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	m := session.NewManager(1)
	s, err := m.Open([]byte(peopleCSV))
	if err != nil {
		t.Fatalf("Open session: %v", err)
	}
	client := &scriptedLLM{replies: []string{fenced(`answer = df.Col("age").Sum()`)}}
	a := New(Options{Manager: m, Client: client, Prompts: b, Archive: archive})

	turn := a.Ask(context.Background(), s, "total age?")

	archived, err := archive.ListTurns(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("ListTurns: %v", err)
	}
	if len(archived) != 1 || archived[0].ID != turn.ID {
		t.Fatalf("archived = %+v, want the live turn", archived)
	}
	if archived[0].Result.Scalar != "70" {
		t.Errorf("archived scalar = %q, want 70", archived[0].Result.Scalar)
	}
}

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"go fence", "```go\nanswer = 1\n```", "answer = 1"},
		{"bare fence", "```\nanswer = 1\n```", "answer = 1"},
		{"prose around fence", "Sure!\n```go\nanswer = 1\n```\nHope that helps.", "answer = 1"},
		{"no fence", "  answer = 1  ", "answer = 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractCode(tt.in); got != tt.want {
				t.Errorf("ExtractCode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
