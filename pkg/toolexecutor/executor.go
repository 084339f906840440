package toolexecutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/harun/vtool/internal/observability"
	"github.com/harun/vtool/internal/tracing"
	"github.com/harun/vtool/pkg/catalog"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultAttemptBudget is the total number of calls allowed to corroborate an unreliable result.
const DefaultAttemptBudget = 3

// Config configures an Executor.
type Config struct {
	Catalog       *catalog.Catalog
	AttemptBudget int
	Faults        FaultModel
	Logger        *zerolog.Logger
}

// Executor invokes catalog tools.
type Executor struct {
	catalog *catalog.Catalog
	budget  int
	faults  FaultModel
	logger  zerolog.Logger
}

// New creates an Executor. Missing fields get defaults: the builtin catalog,
// DefaultAttemptBudget and NoFaults.
func New(cfg Config) *Executor {
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if cfg.AttemptBudget < 1 {
		cfg.AttemptBudget = DefaultAttemptBudget
	}
	if cfg.Faults == nil {
		cfg.Faults = NoFaults{}
	}
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	observability.EnsureRegistered()

	logger.Info().
		Int("tools", cfg.Catalog.Len()).
		Int("attempt_budget", cfg.AttemptBudget).
		Msg("Tool executor initialized")

	return &Executor{
		catalog: cfg.Catalog,
		budget:  cfg.AttemptBudget,
		faults:  cfg.Faults,
		logger:  logger,
	}
}

// Catalog returns the catalog the executor dispatches through.
func (e *Executor) Catalog() *catalog.Catalog {
	return e.catalog
}

// Invoke runs one tool call and returns its outcome. Failures are reported in
// the Outcome, not as a separate error.
func (e *Executor) Invoke(ctx context.Context, req ToolCallRequest) Outcome {
	ctx, span := tracing.StartSpan(ctx, "vtool.toolexecutor", "executor.invoke",
		attribute.String("tool", req.ToolName),
		attribute.Int("args", len(req.Arguments)),
	)

	start := time.Now()
	out := e.invoke(ctx, req)
	out.Duration = time.Since(start)

	span.SetAttributes(attribute.Int("attempts", out.Attempts), attribute.Bool("success", out.Success))
	tracing.EndSpan(span, out.Err)

	// unregistered names share one label so invented tools cannot grow the series count
	label, unreliable := "unknown", false
	if desc, err := e.catalog.Describe(out.Tool); err == nil {
		label, unreliable = desc.Name, desc.IsUnreliable()
	}
	observability.RecordToolInvocation(label, out.Duration, out.Attempts, out.Success, unreliable)

	logger := tracing.LoggerFromContext(ctx, e.logger)
	event := logger.Debug()
	if !out.Success {
		event = logger.Warn().Err(out.Err)
	}
	if execCtx := ExecContextFromContext(ctx); execCtx != nil {
		event = event.Str("caller", execCtx.Caller).Int("step", execCtx.Step)
	}
	event.
		Str("tool", out.Tool).
		Interface("args", req.Arguments).
		Bool("success", out.Success).
		Float64("value", out.Value).
		Int("attempts", out.Attempts).
		Dur("duration", out.Duration).
		Msg("Tool invoked")

	return out
}

func (e *Executor) invoke(ctx context.Context, req ToolCallRequest) Outcome {
	name := catalog.CanonicalName(req.ToolName)

	desc, err := e.catalog.Describe(name)
	if err != nil {
		return failed(name, nil, err, 0)
	}

	schema, err := e.catalog.Schema(name)
	if err != nil {
		return failed(name, nil, err, 0)
	}
	if err := validateArguments(schema, req.Arguments); err != nil {
		return failed(name, nil, fmt.Errorf("%w: %s expects %d number argument(s): %v", ErrArityMismatch, name, desc.Arity(), err), 0)
	}

	args, err := toFloats(req.Arguments)
	if err != nil {
		return failed(name, nil, fmt.Errorf("%w: %v", ErrArityMismatch, err), 0)
	}

	if err := ctx.Err(); err != nil {
		return failed(name, args, err, 0)
	}

	correct, err := catalog.Apply(desc.Op, args)
	if err != nil {
		return failed(name, args, fmt.Errorf("%w: %w", ErrComputation, err), 1)
	}

	if !desc.IsUnreliable() {
		return succeeded(name, args, correct, 1)
	}

	value, attempts, err := corroborate(e.budget, func(attempt int) float64 {
		v := e.faults.Perturb(name, attempt, correct)
		e.logger.Debug().Str("tool", name).Int("attempt", attempt).Float64("result", v).Msg("Unreliable attempt")
		return v
	})
	if err != nil {
		return failed(name, args, err, attempts)
	}
	return succeeded(name, args, value, attempts)
}

// validateArguments validates the positional arguments against a JSON Schema
func validateArguments(schema *gojsonschema.Schema, args []interface{}) error {
	if args == nil {
		args = []interface{}{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return err
	}

	if !result.Valid() {
		errs := []string{}
		for _, err := range result.Errors() {
			errs = append(errs, err.String())
		}
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func toFloats(args []interface{}) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case float64:
			out[i] = v
		case float32:
			out[i] = float64(v)
		case int:
			out[i] = float64(v)
		case int64:
			out[i] = float64(v)
		case int32:
			out[i] = float64(v)
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			out[i] = f
		default:
			return nil, fmt.Errorf("argument %d: unsupported type %T", i, a)
		}
		if math.IsInf(out[i], 0) || math.IsNaN(out[i]) {
			return nil, fmt.Errorf("argument %d: not a finite number", i)
		}
	}
	return out, nil
}
