package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harun/vtool/internal/observability"
	"github.com/harun/vtool/internal/tracing"
	"github.com/harun/vtool/pkg/catalog"
	"github.com/harun/vtool/pkg/commandqueue"
	"github.com/harun/vtool/pkg/conversation"
	"github.com/harun/vtool/pkg/planner"
	"github.com/harun/vtool/pkg/toolexecutor"
	"github.com/harun/vtool/pkg/virtualtool"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// ErrEmptyQuestion is returned when the question is blank.
var ErrEmptyQuestion = errors.New("question is empty")

// Runner runs one conversation for a question.
type Runner interface {
	Run(ctx context.Context, question string) (conversation.Result, error)
}

// Config configures an Orchestrator.
type Config struct {
	Driver Runner
	Store  *virtualtool.Store
	// Queue, when set, serializes asks that share a signature.
	Queue  *commandqueue.CommandQueue
	Logger zerolog.Logger
}

// Orchestrator answers questions from virtual tools or fresh conversations.
type Orchestrator struct {
	driver Runner
	store  *virtualtool.Store
	queue  *commandqueue.CommandQueue
	logger zerolog.Logger
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Driver == nil {
		return nil, fmt.Errorf("driver is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	observability.EnsureRegistered()

	return &Orchestrator{
		driver: cfg.Driver,
		store:  cfg.Store,
		queue:  cfg.Queue,
		logger: cfg.Logger,
	}, nil
}

// Store returns the virtual tool store.
func (o *Orchestrator) Store() *virtualtool.Store {
	return o.store
}

// Ask answers a question. No partial answer is returned on failure; a failed
// replay still reports OriginVirtualTool and the signature.
func (o *Orchestrator) Ask(ctx context.Context, question string) (planner.Answer, error) {
	signature := virtualtool.Signature(question)
	if signature == "" {
		return planner.Answer{}, ErrEmptyQuestion
	}

	if tracing.GetTraceID(ctx) == "" {
		ctx = tracing.NewRequestContext(ctx)
	}
	ctx = tracing.WithSignature(ctx, signature)

	if o.queue == nil {
		return o.ask(ctx, question, signature)
	}

	v, err := o.queue.Enqueue(ctx, "signature:"+signature, func(ctx context.Context) (interface{}, error) {
		return o.ask(ctx, question, signature)
	})
	answer, _ := v.(planner.Answer)
	return answer, err
}

func (o *Orchestrator) ask(ctx context.Context, question, signature string) (planner.Answer, error) {
	ctx, span := tracing.StartSpan(ctx, "vtool.orchestrator", "orchestrator.ask", attribute.String("signature", signature))
	logger := tracing.LoggerFromContext(ctx, o.logger)
	start := time.Now()

	answer, err := o.answer(ctx, question, signature, logger)

	span.SetAttributes(attribute.String("origin", string(answer.Origin)))
	tracing.EndSpan(span, err)
	observability.RecordAsk(string(answer.Origin), time.Since(start), err == nil)

	if err != nil {
		logger.Error().Err(err).Str("kind", ErrorKind(err)).Str("origin", string(answer.Origin)).Msg("Ask failed")
	} else {
		logger.Info().Float64("value", answer.Value).Str("origin", string(answer.Origin)).Msg("Ask answered")
	}
	return answer, err
}

func (o *Orchestrator) answer(ctx context.Context, question, signature string, logger zerolog.Logger) (planner.Answer, error) {
	if entry, ok := o.store.Lookup(signature); ok {
		logger.Debug().Str("entry_id", entry.ID).Msg("Virtual tool hit")
		answer, err := o.store.Replay(ctx, entry)
		if err != nil {
			return planner.Answer{Origin: planner.OriginVirtualTool, Signature: signature}, err
		}
		return answer, nil
	}

	res, err := o.driver.Run(ctx, question)
	if err != nil {
		return planner.Answer{Origin: planner.OriginFreshPlan, Signature: signature}, err
	}

	o.store.Record(ctx, signature, res.Plan)

	return planner.Answer{
		Value:     res.Value,
		Origin:    planner.OriginFreshPlan,
		Plan:      res.Plan.Clone(),
		Signature: signature,
	}, nil
}

// Error kinds reported at the presentation boundary.
const (
	KindEmptyQuestion           = "EmptyQuestion"
	KindUnknownTool             = "UnknownTool"
	KindArityMismatch           = "ArityMismatch"
	KindVerificationExhausted   = "VerificationExhausted"
	KindComputation             = "ComputationError"
	KindTurnBudgetExceeded      = "TurnBudgetExceeded"
	KindConversationFailed      = "ConversationFailed"
	KindFinalAnswerInconsistent = "FinalAnswerInconsistent"
	KindCancelled               = "Cancelled"
	KindInternal                = "Internal"
)

// ErrorKind maps an error to its failure kind. Conversation level errors win
// over the tool errors they may wrap.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyQuestion):
		return KindEmptyQuestion
	case errors.Is(err, conversation.ErrTurnBudgetExceeded):
		return KindTurnBudgetExceeded
	case errors.Is(err, conversation.ErrFinalAnswerInconsistent):
		return KindFinalAnswerInconsistent
	case errors.Is(err, conversation.ErrConversationFailed):
		return KindConversationFailed
	case errors.Is(err, catalog.ErrUnknownTool):
		return KindUnknownTool
	case errors.Is(err, toolexecutor.ErrArityMismatch):
		return KindArityMismatch
	case errors.Is(err, toolexecutor.ErrVerificationExhausted):
		return KindVerificationExhausted
	case errors.Is(err, toolexecutor.ErrComputation):
		return KindComputation
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindInternal
	}
}
