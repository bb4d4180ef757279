// Package analyst runs the question-to-answer pipeline: build a prompt from
// the session, ask the model for code, gate the code, execute it in the
// sandbox, normalize the value and log the turn. A rejected or failed turn is
// recorded like any other; code only ever reaches the sandbox after the gate
// allowed it.
package analyst

import (
	"context"
	"errors"
	"time"

	"datanerd/internal/dataset"
	"datanerd/internal/llm"
	"datanerd/internal/logging"
	"datanerd/internal/policy"
	"datanerd/internal/prompt"
	"datanerd/internal/result"
	"datanerd/internal/sandbox"
	"datanerd/internal/session"
	"datanerd/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Runner executes an accepted program against a session's dataset. Satisfied
// by *sandbox.Executor.
type Runner interface {
	Run(ctx context.Context, frame *dataset.Frame, prog *policy.Program) (interface{}, error)
}

// Options wire an Analyst.
type Options struct {
	Manager *session.Manager
	Client  llm.Client
	Prompts *prompt.Builder
	Runner  Runner
	Archive *store.Store // optional durable turn log
}

// Analyst orchestrates one pipeline per Ask call.
type Analyst struct {
	manager *session.Manager
	client  llm.Client
	prompts *prompt.Builder
	gate    *policy.Gate
	runner  Runner
	archive *store.Store
	log     *zap.Logger
}

// New builds an analyst. Manager, Client and Prompts are required; Runner
// defaults to a sandbox executor with stock limits.
func New(o Options) *Analyst {
	runner := o.Runner
	if runner == nil {
		runner = sandbox.NewExecutor(sandbox.DefaultOptions())
	}
	return &Analyst{
		manager: o.Manager,
		client:  o.Client,
		prompts: o.Prompts,
		gate:    policy.NewGate(),
		runner:  runner,
		archive: o.Archive,
		log:     logging.Get(logging.CategoryAnalyst),
	}
}

// Ask runs one full turn. The returned turn always carries a result; model,
// policy and sandbox failures become error results, not Go errors. Turns
// within a session run strictly one at a time.
func (a *Analyst) Ask(ctx context.Context, s *session.Session, question string) session.Turn {
	s.BeginTurn()
	defer s.EndTurn()

	start := time.Now()
	turn := session.Turn{
		ID:       uuid.NewString(),
		Question: question,
		At:       start.UTC(),
	}

	p := a.prompts.Code(s.Descriptor(), s.History(prompt.HistoryWindow), question)

	llmStart := time.Now()
	raw, err := a.client.CompleteWithSystem(ctx, a.prompts.CodeSystem(), p)
	logging.LLMRecord(s.ID, 1, err == nil, time.Since(llmStart).Milliseconds(), errText(err))
	if err != nil {
		turn.Result = result.Failure(result.CodeLLMUnavailable, err.Error())
		return a.finish(ctx, s, turn, start)
	}

	turn.Code = ExtractCode(raw)
	verdict, prog := a.gate.Inspect(turn.Code)
	if !verdict.Allowed {
		turn.Reasons = verdict.Reasons()
		logging.DenialRecord(s.ID, turn.ID, turn.Reasons)
		turn.Result = result.Denial(turn.Reasons)
		return a.finish(ctx, s, turn, start)
	}
	turn.Allowed = true

	turn.Result = a.execute(ctx, s, turn.ID, prog)
	return a.finish(ctx, s, turn, start)
}

// execute runs an accepted program under the cross-session concurrency cap
// and maps sandbox failures onto the error taxonomy.
func (a *Analyst) execute(ctx context.Context, s *session.Session, turnID string, prog *policy.Program) *result.Result {
	if err := a.manager.AcquireExecution(ctx); err != nil {
		return result.Failure(result.CodeTimeout, "timed out waiting for an execution slot")
	}
	defer a.manager.ReleaseExecution()

	execStart := time.Now()
	value, err := a.runner.Run(ctx, s.Frame(), prog)
	logging.ExecutionRecord(s.ID, turnID, err == nil, time.Since(execStart).Milliseconds(), errText(err))

	switch {
	case err == nil:
		return result.Normalize(value)
	case errors.Is(err, sandbox.ErrTimeout):
		return result.Failure(result.CodeTimeout, err.Error())
	case errors.Is(err, sandbox.ErrResourceLimit):
		return result.Failure(result.CodeResourceLimitExceeded, err.Error())
	default:
		// Mutation, missing answer and snippet crashes all count as the
		// snippet's fault.
		return result.Failure(result.CodeRuntimeFailure, err.Error())
	}
}

func (a *Analyst) finish(ctx context.Context, s *session.Session, turn session.Turn, start time.Time) session.Turn {
	turn.Duration = time.Since(start)
	s.Append(turn)

	if a.archive != nil {
		if err := a.archive.AppendTurn(ctx, s.ID, s.TurnCount()-1, turn); err != nil {
			a.log.Warn("turn archive failed",
				zap.String("session_id", s.ID),
				zap.String("turn_id", turn.ID),
				zap.Error(err))
		}
	}

	a.log.Info("turn completed",
		zap.String("session_id", s.ID),
		zap.String("turn_id", turn.ID),
		zap.Bool("allowed", turn.Allowed),
		zap.String("kind", turn.Result.Kind.String()),
		zap.Duration("duration", turn.Duration))
	return turn
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
