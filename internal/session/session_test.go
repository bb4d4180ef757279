package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"datanerd/internal/result"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

const ordersCSV = "region,units\nnorth,10\nsouth,20\n"

func openTestSession(t *testing.T) (*Manager, *Session) {
	t.Helper()
	m := NewManager(2)
	s, err := m.Open([]byte(ordersCSV))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return m, s
}

func turn(question, scalar string) Turn {
	return Turn{
		ID:       question,
		Question: question,
		Allowed:  true,
		Result:   &result.Result{Kind: result.KindScalar, Scalar: scalar},
		At:       time.Now().UTC(),
	}
}

func TestOpenAssignsUniqueSessions(t *testing.T) {
	m := NewManager(0)
	a, err := m.Open([]byte(ordersCSV))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	b, err := m.Open([]byte(ordersCSV))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if a.ID == b.ID {
		t.Fatal("sessions share an ID")
	}
	if got, ok := m.Get(a.ID); !ok || got != a {
		t.Error("Get did not return the opened session")
	}
	if a.Descriptor().RowCount != 2 {
		t.Errorf("descriptor rows = %d, want 2", a.Descriptor().RowCount)
	}
}

func TestTurnLogIsAppendOnly(t *testing.T) {
	_, s := openTestSession(t)

	s.Append(turn("q1", "10"))
	s.Append(turn("q2", "20"))

	first := s.Turns()
	first[0].Question = "tampered"

	if got := s.Turns(); got[0].Question != "q1" {
		t.Error("mutating a returned copy leaked into the log")
	}
	if s.TurnCount() != 2 {
		t.Errorf("count = %d, want 2", s.TurnCount())
	}
}

func TestHistoryWindow(t *testing.T) {
	_, s := openTestSession(t)
	for i := 0; i < 6; i++ {
		s.Append(turn(fmt.Sprintf("q%d", i), "1"))
	}

	got := s.History(4)
	want := []string{"q2", "q3", "q4", "q5"}
	questions := make([]string, len(got))
	for i, tn := range got {
		questions[i] = tn.Question
	}
	if diff := cmp.Diff(want, questions); diff != "" {
		t.Errorf("history window mismatch (-want +got):\n%s", diff)
	}

	if got := s.History(10); len(got) != 6 {
		t.Errorf("oversized window returned %d turns, want 6", len(got))
	}
}

func TestResetKeepsDataset(t *testing.T) {
	_, s := openTestSession(t)
	s.Append(turn("q1", "10"))

	s.Reset()

	if s.TurnCount() != 0 {
		t.Error("reset did not clear the log")
	}
	if s.Frame().NumRows() != 2 {
		t.Error("reset dropped the dataset")
	}
}

func TestExecutionCeiling(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewManager(1)
	ctx := context.Background()

	if err := m.AcquireExecution(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := m.AcquireExecution(blocked); err == nil {
		m.ReleaseExecution()
		t.Fatal("second acquire should block at ceiling 1")
	}

	m.ReleaseExecution()
	if err := m.AcquireExecution(ctx); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	m.ReleaseExecution()
}

func TestConcurrentAppends(t *testing.T) {
	_, s := openTestSession(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Append(turn(fmt.Sprintf("q%d", i), "1"))
		}(i)
	}
	wg.Wait()

	if s.TurnCount() != 10 {
		t.Errorf("count = %d, want 10", s.TurnCount())
	}
}
