package virtualtool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/harun/vtool/internal/observability"
	"github.com/harun/vtool/internal/tracing"
	"github.com/harun/vtool/pkg/planner"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultPromotionThreshold is the number of identical verified plans needed to activate an entry.
const DefaultPromotionThreshold = 3

// Entry is a snapshot of a virtual tool entry.
type Entry struct {
	ID           string       `json:"id" yaml:"id"`
	Signature    string       `json:"signature" yaml:"signature"`
	Plan         planner.Plan `json:"plan" yaml:"plan"`
	SuccessCount int          `json:"success_count" yaml:"success_count"`
	Active       bool         `json:"active" yaml:"active"`
	Replays      int          `json:"replays" yaml:"replays"`
	CreatedAt    time.Time    `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" yaml:"updated_at"`
	PromotedAt   *time.Time   `json:"promoted_at,omitempty" yaml:"promoted_at,omitempty"`
}

func (e *Entry) snapshot() Entry {
	out := *e
	out.Plan = e.Plan.Clone()
	if e.PromotedAt != nil {
		t := *e.PromotedAt
		out.PromotedAt = &t
	}
	return out
}

// Config configures a Store.
type Config struct {
	PromotionThreshold int
	Invoker            planner.Invoker
	Logger             zerolog.Logger
}

// Store owns every virtual tool entry. All methods are safe for concurrent use.
type Store struct {
	threshold int
	invoker   planner.Invoker
	logger    zerolog.Logger
	now       func() time.Time

	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewStore creates an empty store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Invoker == nil {
		return nil, fmt.Errorf("invoker is required")
	}
	if cfg.PromotionThreshold <= 0 {
		cfg.PromotionThreshold = DefaultPromotionThreshold
	}

	observability.EnsureRegistered()

	return &Store{
		threshold: cfg.PromotionThreshold,
		invoker:   cfg.Invoker,
		logger:    cfg.Logger,
		now:       time.Now,
		entries:   make(map[string]*Entry),
	}, nil
}

// Threshold returns the promotion threshold.
func (s *Store) Threshold() int {
	return s.threshold
}

// Lookup returns the active entry for signature, if any.
func (s *Store) Lookup(signature string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[signature]
	if !ok || !e.Active {
		return Entry{}, false
	}
	return e.snapshot(), true
}

// Get returns the entry for signature whether or not it is active.
func (s *Store) Get(signature string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[signature]
	if !ok {
		return Entry{}, false
	}
	return e.snapshot(), true
}

// Record registers one successful, verified plan for signature and returns
// the updated entry.
//
// A new signature starts at count 1. The same plan increments the count and
// promotes the entry at the threshold. A different plan replaces the tracked
// plan and restarts the count, unless the entry is already active, in which
// case its frozen plan is kept and the submission ignored.
func (s *Store) Record(ctx context.Context, signature string, plan planner.Plan) Entry {
	logger := tracing.LoggerFromContext(ctx, s.logger)
	now := s.now()

	s.mu.Lock()
	e, ok := s.entries[signature]
	action := "record"
	switch {
	case !ok:
		id, _ := gonanoid.New()
		e = &Entry{
			ID:           id,
			Signature:    signature,
			Plan:         plan.Clone(),
			SuccessCount: 1,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		s.entries[signature] = e
		action = "create"

	case e.Plan.Equal(plan):
		e.SuccessCount++
		e.UpdatedAt = now

	case e.Active:
		action = "ignore"

	default:
		e.Plan = plan.Clone()
		e.SuccessCount = 1
		e.UpdatedAt = now
		action = "reset"
	}

	promoted := false
	if !e.Active && e.SuccessCount >= s.threshold {
		e.Active = true
		e.PromotedAt = &now
		promoted = true
	}

	snap := e.snapshot()
	active := s.activeCountLocked()
	s.mu.Unlock()

	logger.Debug().
		Str("signature", signature).
		Str("action", action).
		Int("success_count", snap.SuccessCount).
		Str("plan", plan.String()).
		Msg("Virtual tool plan recorded")
	observability.RecordVirtualToolAudit(ctx, action, signature, "ok", map[string]interface{}{
		"entry_id":      snap.ID,
		"success_count": snap.SuccessCount,
	})

	if promoted {
		observability.RecordPromotion(active)
		observability.RecordVirtualToolAudit(ctx, "promote", signature, "active", map[string]interface{}{
			"entry_id": snap.ID,
			"plan":     snap.Plan.String(),
		})
		logger.Info().
			Str("signature", signature).
			Str("entry_id", snap.ID).
			Int("success_count", snap.SuccessCount).
			Msg("Virtual tool promoted")
	}

	return snap
}

// Replay re-executes the entry's frozen plan and returns the final step's
// value tagged VIRTUAL_TOOL.
func (s *Store) Replay(ctx context.Context, entry Entry) (planner.Answer, error) {
	ctx, span := tracing.StartSpan(ctx, "vtool.virtualtool", "virtualtool.replay",
		attribute.String("entry_id", entry.ID),
		attribute.Int("steps", len(entry.Plan.Steps)),
	)
	logger := tracing.LoggerFromContext(ctx, s.logger)

	value, steps, err := planner.Replay(ctx, s.invoker, entry.Plan)
	attempts := 0
	for _, r := range steps {
		attempts += r.Attempts
		logger.Debug().
			Str("entry_id", entry.ID).
			Int("step", r.Index).
			Str("tool", r.Tool).
			Bool("success", r.Success).
			Int("attempts", r.Attempts).
			Dur("duration", r.Duration).
			Msg("Virtual tool replay step")
	}
	span.SetAttributes(attribute.Int("attempts", attempts))
	tracing.EndSpan(span, err)

	s.mu.Lock()
	if e, ok := s.entries[entry.Signature]; ok {
		e.Replays++
	}
	s.mu.Unlock()

	status := "success"
	if err != nil {
		status = "failed"
	}
	observability.RecordVirtualToolAudit(ctx, "replay", entry.Signature, status, map[string]interface{}{
		"entry_id":       entry.ID,
		"attempts":       attempts,
		"steps_executed": len(steps),
	})

	if err != nil {
		logger.Warn().Err(err).Str("entry_id", entry.ID).Int("steps_executed", len(steps)).Msg("Virtual tool replay failed")
		return planner.Answer{}, fmt.Errorf("replay virtual tool %s: %w", entry.ID, err)
	}

	logger.Info().Str("entry_id", entry.ID).Float64("value", value).Int("attempts", attempts).Msg("Virtual tool replayed")
	return planner.Answer{
		Value:     value,
		Origin:    planner.OriginVirtualTool,
		Plan:      entry.Plan.Clone(),
		Signature: entry.Signature,
	}, nil
}

// Entries returns snapshots of every entry ordered by signature.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Signature < out[j].Signature })
	return out
}

// ActiveCount returns the number of active entries.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeCountLocked()
}

func (s *Store) activeCountLocked() int {
	n := 0
	for _, e := range s.entries {
		if e.Active {
			n++
		}
	}
	return n
}
