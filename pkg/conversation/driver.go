package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/harun/vtool/internal/observability"
	"github.com/harun/vtool/internal/tracing"
	"github.com/harun/vtool/pkg/agent"
	"github.com/harun/vtool/pkg/catalog"
	"github.com/harun/vtool/pkg/planner"
	"github.com/harun/vtool/pkg/toolexecutor"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// ErrTurnBudgetExceeded is returned when the collaborator used every turn without answering.
	ErrTurnBudgetExceeded = errors.New("turn budget exceeded")
	// ErrConversationFailed is returned for terminal failures other than the turn budget.
	ErrConversationFailed = errors.New("conversation failed")
	// ErrFinalAnswerInconsistent is returned when the stated answer does not match the verified chain.
	ErrFinalAnswerInconsistent = errors.New("final answer inconsistent")
)

// Defaults for Config. TurnBudget takes its default when not positive;
// MaxToolFailures only when negative, since zero means no failure is tolerated.
const (
	DefaultTurnBudget      = 20
	DefaultMaxToolFailures = 3
)

// State is a conversation state.
type State string

const (
	StateDiscovery State = "DISCOVERY"
	StateExecution State = "EXECUTION"
	StateFinal     State = "FINAL"
	StateFailed    State = "FAILED"
)

// Config configures a Driver.
type Config struct {
	Catalog      *catalog.Catalog
	Executor     planner.Invoker
	Collaborator agent.Collaborator
	TurnBudget   int
	// MaxToolFailures is how many failed tool outcomes are tolerated; one more fails the conversation.
	// Zero tolerates none.
	MaxToolFailures int
	Logger          zerolog.Logger
}

// Driver runs conversations. It holds no per-conversation state, so one
// Driver can serve many sequential questions.
type Driver struct {
	catalog      *catalog.Catalog
	executor     planner.Invoker
	collaborator agent.Collaborator
	turnBudget   int
	maxFailures  int
	logger       zerolog.Logger
}

// Result describes a finished conversation. On failure Plan is empty but the
// counters and history are kept for diagnostics.
type Result struct {
	State        State
	Plan         planner.Plan
	Value        float64
	Turns        int
	ToolFailures int
	History      []agent.AgentMessage
}

// New creates a Driver.
func New(cfg Config) (*Driver, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.Collaborator == nil {
		return nil, fmt.Errorf("collaborator is required")
	}
	if cfg.TurnBudget <= 0 {
		cfg.TurnBudget = DefaultTurnBudget
	}
	if cfg.MaxToolFailures < 0 {
		cfg.MaxToolFailures = DefaultMaxToolFailures
	}

	observability.EnsureRegistered()

	return &Driver{
		catalog:      cfg.Catalog,
		executor:     cfg.Executor,
		collaborator: cfg.Collaborator,
		turnBudget:   cfg.TurnBudget,
		maxFailures:  cfg.MaxToolFailures,
		logger:       cfg.Logger,
	}, nil
}

// run holds the mutable state of one conversation.
type run struct {
	state    State
	history  []agent.AgentMessage
	builder  *planner.Builder
	turns    int
	failures int
}

func (r *run) result() Result {
	return Result{State: r.state, Turns: r.turns, ToolFailures: r.failures, History: r.history}
}

// Run drives the collaborator until it gives a consistent final answer or
// the conversation fails.
func (d *Driver) Run(ctx context.Context, question string) (Result, error) {
	ctx = tracing.NewRunContext(ctx)
	ctx, span := tracing.StartSpan(ctx, "vtool.conversation", "conversation.run")
	logger := tracing.LoggerFromContext(ctx, d.logger)

	r := &run{
		state:   StateDiscovery,
		history: []agent.AgentMessage{agent.UserMessage(question)},
		builder: planner.NewBuilder(),
	}

	res, err := d.loop(ctx, r, logger)

	span.SetAttributes(
		attribute.String("state", string(res.State)),
		attribute.Int("turns", res.Turns),
		attribute.Int("tool_failures", res.ToolFailures),
	)
	tracing.EndSpan(span, err)
	observability.RecordConversation(outcomeLabel(err), res.Turns)

	if err != nil {
		logger.Warn().Err(err).Int("turns", res.Turns).Int("tool_failures", res.ToolFailures).Msg("Conversation failed")
	} else {
		logger.Info().Int("turns", res.Turns).Int("steps", len(res.Plan.Steps)).Float64("value", res.Value).Msg("Conversation finished")
	}
	return res, err
}

func (d *Driver) loop(ctx context.Context, r *run, logger zerolog.Logger) (Result, error) {
	systemPrompt := agent.SystemPrompt(d.catalog.Len())

	for {
		if r.turns >= d.turnBudget {
			return d.fail(r, fmt.Errorf("%w: %d turns used", ErrTurnBudgetExceeded, r.turns))
		}
		if err := ctx.Err(); err != nil {
			return d.fail(r, fmt.Errorf("%w: %w", ErrConversationFailed, err))
		}

		reply, err := d.collaborator.Next(ctx, agent.Request{SystemPrompt: systemPrompt, History: r.history})
		r.turns++
		if err != nil {
			return d.fail(r, fmt.Errorf("%w: collaborator: %w", ErrConversationFailed, err))
		}

		logger.Debug().Int("turn", r.turns).Str("state", string(r.state)).Str("kind", string(reply.Kind)).Msg("Collaborator turn")

		var response string
		switch reply.Kind {
		case agent.ReplyListTools:
			response = d.listTools()

		case agent.ReplyDescribeTool:
			response = d.describeTool(reply.ToolName)

		case agent.ReplyToolCall:
			if r.state == StateDiscovery {
				d.transition(r, StateExecution, logger)
			}
			response, err = d.executeTool(ctx, r, *reply.Call)
			if err != nil {
				return d.fail(r, err)
			}

		case agent.ReplyFinalAnswer:
			return d.finish(r, *reply.Final, logger)

		default:
			response = agent.NudgeText
			if reply.Problem != "" {
				response = fmt.Sprintf("Could not understand the reply (%s). %s", reply.Problem, agent.NudgeText)
			}
		}

		r.history = append(r.history, reply.Transcript(response)...)
	}
}

func (d *Driver) listTools() string {
	names := d.catalog.ListNames()
	return fmt.Sprintf("We have %d tools: %s. Ask for doc by name if needed.", len(names), strings.Join(names, ", "))
}

func (d *Driver) describeTool(name string) string {
	desc, err := d.catalog.Describe(name)
	if err != nil {
		return fmt.Sprintf("No such tool: %q.", name)
	}
	return desc.Text()
}

func (d *Driver) executeTool(ctx context.Context, r *run, call toolexecutor.ToolCallRequest) (string, error) {
	step := r.builder.Len()
	stepCtx := toolexecutor.ContextWithExecContext(ctx, &toolexecutor.ExecutionContext{Caller: "conversation", Step: step})
	out := d.executor.Invoke(stepCtx, call)

	if out.Success {
		idx := r.builder.Append(planner.Step{Tool: out.Tool, Args: out.Args}, out.Value)
		return fmt.Sprintf("Step %d: %s = %s", idx, planner.Step{Tool: out.Tool, Args: out.Args}, formatValue(out.Value)), nil
	}

	r.failures++
	if r.failures > d.maxFailures {
		return "", fmt.Errorf("%w: %d failed tool calls: %w", ErrConversationFailed, r.failures, out.Err)
	}
	return fmt.Sprintf("Tool call failed: %s. It is not part of the plan; you may retry with a different tool or arguments.", out.ErrorMessage()), nil
}

func (d *Driver) finish(r *run, final agent.FinalAnswer, logger zerolog.Logger) (Result, error) {
	plan, value, err := r.builder.Finalize(final.FinalStep)
	if err != nil {
		return d.fail(r, fmt.Errorf("%w: %w", ErrFinalAnswerInconsistent, err))
	}
	if value != final.Value {
		return d.fail(r, fmt.Errorf("%w: stated %s but step %d verified %s",
			ErrFinalAnswerInconsistent, formatValue(final.Value), plan.FinalStep, formatValue(value)))
	}

	d.transition(r, StateFinal, logger)
	res := r.result()
	res.Plan = plan
	res.Value = value
	return res, nil
}

func (d *Driver) fail(r *run, err error) (Result, error) {
	r.state = StateFailed
	return r.result(), err
}

func (d *Driver) transition(r *run, to State, logger zerolog.Logger) {
	logger.Debug().Str("from", string(r.state)).Str("to", string(to)).Msg("Conversation state change")
	r.state = to
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "final"
	case errors.Is(err, ErrTurnBudgetExceeded):
		return "turn_budget"
	case errors.Is(err, ErrFinalAnswerInconsistent):
		return "inconsistent"
	default:
		return "failed"
	}
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
