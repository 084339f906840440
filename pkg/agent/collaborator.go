package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/harun/vtool/internal/observability"
	"github.com/harun/vtool/internal/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// ErrNoProfileAvailable is returned when every profile is cooling down.
var ErrNoProfileAvailable = errors.New("no auth profile available")

// Request is one turn sent to the collaborator.
type Request struct {
	SystemPrompt string
	History      []AgentMessage
}

// Collaborator is the conversational oracle the driver talks to. Next blocks
// until the collaborator replies.
type Collaborator interface {
	Next(ctx context.Context, req Request) (Reply, error)
}

// CollaboratorFunc adapts a function to Collaborator.
type CollaboratorFunc func(ctx context.Context, req Request) (Reply, error)

// Next calls f.
func (f CollaboratorFunc) Next(ctx context.Context, req Request) (Reply, error) {
	return f(ctx, req)
}

// Config holds LLM collaborator configuration
type Config struct {
	Profiles        []AuthProfile
	ProviderFactory ProviderCreator
	Temperature     float64
	MaxTokens       int
	MaxRetries      int
	Logger          zerolog.Logger
	// Backoff returns the wait before retry number attempt (0-based). Defaults to 1s, 2s, 4s...
	Backoff func(attempt int) time.Duration
}

// LLMCollaborator reaches a language model through provider profiles with
// failover and retry.
type LLMCollaborator struct {
	factory     ProviderCreator
	temperature float64
	maxTokens   int
	maxRetries  int
	backoff     func(attempt int) time.Duration
	logger      zerolog.Logger
	now         func() time.Time

	authProfiles []AuthProfile
	authMu       sync.RWMutex

	providers   map[string]LLMProvider
	providersMu sync.Mutex
}

// NewLLMCollaborator creates a collaborator backed by the configured profiles
func NewLLMCollaborator(cfg Config) (*LLMCollaborator, error) {
	observability.EnsureRegistered()

	if len(cfg.Profiles) == 0 {
		return nil, fmt.Errorf("at least one auth profile is required")
	}
	for _, p := range cfg.Profiles {
		if p.Model == "" {
			return nil, fmt.Errorf("auth profile %s: model is required", p.ID)
		}
	}

	factory := cfg.ProviderFactory
	if factory == nil {
		factory = &ProviderFactory{}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = func(attempt int) time.Duration { return time.Duration(1000*(1<<attempt)) * time.Millisecond }
	}

	return &LLMCollaborator{
		factory:      factory,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		maxRetries:   maxRetries,
		backoff:      backoff,
		logger:       cfg.Logger,
		now:          time.Now,
		authProfiles: append([]AuthProfile(nil), cfg.Profiles...),
		providers:    make(map[string]LLMProvider),
	}, nil
}

// Next sends the history to the highest-priority healthy profile and
// classifies its response.
func (c *LLMCollaborator) Next(ctx context.Context, req Request) (Reply, error) {
	ctx, span := tracing.StartSpan(ctx, "vtool.agent", "collaborator.next",
		attribute.Int("history", len(req.History)),
	)
	reply, err := c.executeWithFailover(ctx, req)
	if err == nil {
		span.SetAttributes(attribute.String("reply_kind", string(reply.Kind)), attribute.String("provider", reply.Provider))
	}
	tracing.EndSpan(span, err)
	return reply, err
}

// executeWithFailover executes with auth profile failover
func (c *LLMCollaborator) executeWithFailover(ctx context.Context, req Request) (Reply, error) {
	c.authMu.RLock()
	profiles := make([]AuthProfile, len(c.authProfiles))
	copy(profiles, c.authProfiles)
	c.authMu.RUnlock()
	logger := tracing.LoggerFromContext(ctx, c.logger)

	sortProfilesByPriority(profiles)

	var lastErr error

	for _, profile := range profiles {
		if profile.CooldownUntil != nil && c.now().UnixMilli() < *profile.CooldownUntil {
			logger.Debug().
				Str("profileId", profile.ID).
				Msg("Skipping profile in cooldown")
			continue
		}

		provider, err := c.provider(profile)
		if err != nil {
			lastErr = err
			logger.Warn().
				Str("profileId", profile.ID).
				Err(err).
				Msg("Failed to create provider")
			continue
		}

		start := time.Now()
		resp, err := c.callLLMWithRetry(ctx, provider, profile, req)
		if err == nil {
			c.updateProfileSuccess(profile.ID)
			observability.RecordCollaboratorCall(profile.Provider, time.Since(start), true)

			reply := ClassifyResponse(resp)
			reply.Provider = profile.Provider
			logger.Debug().
				Str("profileId", profile.ID).
				Str("kind", string(reply.Kind)).
				Msg("Collaborator replied")
			return reply, nil
		}

		lastErr = err
		observability.RecordCollaboratorCall(profile.Provider, time.Since(start), false)
		logger.Warn().
			Str("profileId", profile.ID).
			Err(err).
			Msg("Auth profile failed")

		c.updateProfileFailure(profile.ID)

		// Don't fail over on permanent errors
		if !IsRetryableError(err) {
			return Reply{}, err
		}
	}

	if lastErr == nil {
		return Reply{}, ErrNoProfileAvailable
	}
	logger.Error().Err(lastErr).Msg("All auth profiles failed")
	return Reply{}, fmt.Errorf("all auth profiles failed: %w", lastErr)
}

func (c *LLMCollaborator) provider(profile AuthProfile) (LLMProvider, error) {
	c.providersMu.Lock()
	defer c.providersMu.Unlock()

	if p, ok := c.providers[profile.ID]; ok {
		return p, nil
	}
	p, err := c.factory.NewProvider(profile)
	if err != nil {
		return nil, err
	}
	c.providers[profile.ID] = p
	return p, nil
}

// callLLMWithRetry calls LLM with exponential backoff retry
func (c *LLMCollaborator) callLLMWithRetry(ctx context.Context, provider LLMProvider, profile AuthProfile, req Request) (*LLMResponse, error) {
	request := LLMRequest{
		Model:        profile.Model,
		Messages:     req.History,
		Tools:        ProtocolTools(),
		Temperature:  c.temperature,
		MaxTokens:    c.maxTokens,
		SystemPrompt: req.SystemPrompt,
	}

	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		response, err := provider.Call(ctx, request)
		if err == nil {
			return response, nil
		}

		lastErr = err

		// Don't retry on permanent errors
		if !IsRetryableError(err) {
			return nil, err
		}

		// Last attempt - don't wait
		if attempt == c.maxRetries-1 {
			break
		}

		delay := c.backoff(attempt)
		c.logger.Info().
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("Retrying after error")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// updateProfileSuccess resets failure count for a profile
func (c *LLMCollaborator) updateProfileSuccess(profileID string) {
	c.authMu.Lock()
	defer c.authMu.Unlock()

	for i := range c.authProfiles {
		if c.authProfiles[i].ID == profileID {
			c.authProfiles[i].FailureCount = 0
			c.authProfiles[i].CooldownUntil = nil
			break
		}
	}
}

// updateProfileFailure marks a profile as failed
func (c *LLMCollaborator) updateProfileFailure(profileID string) {
	c.authMu.Lock()
	defer c.authMu.Unlock()

	for i := range c.authProfiles {
		if c.authProfiles[i].ID == profileID {
			c.authProfiles[i].FailureCount++
			cooldownMs := c.now().UnixMilli() + int64(60000*c.authProfiles[i].FailureCount)
			c.authProfiles[i].CooldownUntil = &cooldownMs
			break
		}
	}
}

// sortProfilesByPriority sorts profiles by priority (lower = higher priority)
func sortProfilesByPriority(profiles []AuthProfile) {
	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].Priority < profiles[j].Priority
	})
}
