package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Conceptual-Machines/giftbox-api/internal/composer"
	"github.com/Conceptual-Machines/giftbox-api/internal/extractor"
	"github.com/Conceptual-Machines/giftbox-api/internal/imaging"
	"github.com/Conceptual-Machines/giftbox-api/internal/lexicon"
	"github.com/Conceptual-Machines/giftbox-api/internal/logger"
	"github.com/Conceptual-Machines/giftbox-api/internal/models"
	"github.com/Conceptual-Machines/giftbox-api/internal/observability"
	"github.com/Conceptual-Machines/giftbox-api/internal/quota"
)

var (
	// ErrNoBackend is a fatal configuration error
	ErrNoBackend = errors.New("no image backend configured")
	ErrNoStore   = errors.New("no quota store configured")
)

// Reasons reported alongside non-accepted results
const (
	reasonQuotaExceeded = "generation limit reached for this session"
	reasonFallback      = "image generation is temporarily unavailable"
	reasonUnverified    = "image could not be verified against the notes"
)

// Recorder receives one measurement per finished request
type Recorder interface {
	RecordGeneration(ctx context.Context, backend, status string, attempts int, duration time.Duration)
}

// Options configures a Controller
type Options struct {
	Lexicon     *lexicon.Lexicon
	Policy      models.BrandPolicy
	Store       quota.Store
	Backend     imaging.ImageBackend
	Verifier    imaging.Verifier // nil skips verification
	Placeholder imaging.PlaceholderProvider
	Params      imaging.RenderParams

	MaxGenerations int
	MaxAttempts    int

	// Optional instrumentation
	Recorder Recorder
	Langfuse *observability.LangfuseClient
	Model    string // reported to tracing and cost estimates
}

// Controller runs the per-session generation workflow: quota check, compile,
// bounded attempts with optional verification, then a single quota increment
type Controller struct {
	extractor   *extractor.Extractor
	composer    *composer.Composer
	policy      models.BrandPolicy
	store       quota.Store
	backend     imaging.ImageBackend
	verifier    imaging.Verifier
	placeholder imaging.PlaceholderProvider
	params      imaging.RenderParams

	maxGenerations int
	maxAttempts    int

	recorder Recorder
	langfuse *observability.LangfuseClient
	model    string
}

// NewController validates options and builds a controller
func NewController(opts Options) (*Controller, error) {
	if opts.Backend == nil {
		return nil, ErrNoBackend
	}
	if opts.Store == nil {
		return nil, ErrNoStore
	}
	if opts.Lexicon == nil {
		return nil, errors.New("lexicon is required")
	}
	if opts.MaxGenerations < 1 {
		return nil, fmt.Errorf("max generations must be at least 1, got %d", opts.MaxGenerations)
	}
	if opts.MaxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be at least 1, got %d", opts.MaxAttempts)
	}

	placeholder := opts.Placeholder
	if placeholder == nil {
		placeholder = imaging.NewSVGPlaceholder()
	}
	langfuse := opts.Langfuse
	if langfuse == nil {
		langfuse = observability.GetClient()
	}

	return &Controller{
		extractor:      extractor.New(opts.Lexicon, opts.Policy),
		composer:       composer.New(opts.Lexicon),
		policy:         opts.Policy,
		store:          opts.Store,
		backend:        opts.Backend,
		verifier:       opts.Verifier,
		placeholder:    placeholder,
		params:         opts.Params,
		maxGenerations: opts.MaxGenerations,
		maxAttempts:    opts.MaxAttempts,
		recorder:       opts.Recorder,
		langfuse:       langfuse,
		model:          opts.Model,
	}, nil
}

// MaxGenerations returns the per-session limit
func (c *Controller) MaxGenerations() int {
	return c.maxGenerations
}

// Compile extracts tags and composes constraints without touching quota or backends
func (c *Controller) Compile(req models.RequestContext) (models.TagSet, models.ComposedConstraints) {
	tags := c.extractor.Extract(req.Notes)
	return tags, c.composer.Compose(req, tags, c.policy)
}

// Usage returns the number of successful generations for a session
func (c *Controller) Usage(ctx context.Context, sessionID string) (int, error) {
	count, err := c.store.Get(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to read quota: %w", err)
	}
	return count, nil
}

// Generate runs one generation request for a session. Quota is charged only
// when content is returned; fallbacks and cancellations are free.
func (c *Controller) Generate(ctx context.Context, req models.RequestContext) (*models.GenerationResult, error) {
	startTime := time.Now()
	fields := logger.Fields{"session_id": req.SessionID, "backend": c.backend.Name()}

	used, err := c.store.Get(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read quota: %w", err)
	}
	if used >= c.maxGenerations {
		logger.Info("Session quota exhausted", fields)
		result := quotaExceeded(used)
		trace := c.langfuse.StartTrace(ctx, req.SessionID, "giftbox.generate", nil)
		trace.Finish(string(result.Status), 0)
		c.record(ctx, result, startTime)
		return result, nil
	}

	tags, constraints := c.Compile(req)
	logger.Debug("Compiled generation constraints", withField(fields, "must_include", len(constraints.MustInclude)))

	trace := c.langfuse.StartTrace(ctx, req.SessionID, "giftbox.generate", map[string]interface{}{
		"tier":     string(models.ParseTier(string(req.Tier))),
		"occasion": req.Occasion,
		"include":  tags.IncludeTags,
		"avoid":    tags.AvoidTags,
	})
	traceStatus, attempts := observability.OutcomeError, 0
	defer func() { trace.Finish(traceStatus, attempts) }()

	final, attempts, err := c.runAttempts(ctx, req, constraints.PromptText, trace, fields)
	if err != nil {
		if ctx.Err() != nil {
			traceStatus = observability.OutcomeCancelled
		}
		return nil, err
	}
	// An abandoned request is never charged, even when content was produced
	if ctxErr := ctx.Err(); ctxErr != nil {
		traceStatus = observability.OutcomeCancelled
		return nil, fmt.Errorf("generation cancelled: %w", ctxErr)
	}

	if final == nil {
		logger.Warn("All generation attempts failed, returning placeholder", fields)
		result := &models.GenerationResult{
			Accepted:   false,
			ContentRef: c.placeholder.Build(ctx, req),
			UsedCount:  used,
			Fallback:   true,
			Reason:     reasonFallback,
			Status:     models.StatusFallback,
			Attempts:   attempts,
			Backend:    c.backend.Name(),
		}
		traceStatus = string(result.Status)
		c.record(ctx, result, startTime)
		return result, nil
	}

	count, ok, err := c.store.TryIncrement(ctx, req.SessionID, c.maxGenerations)
	if err != nil {
		return nil, fmt.Errorf("failed to update quota: %w", err)
	}
	if !ok {
		// A concurrent request for the same session used the last slot
		logger.Warn("Session quota exhausted by a concurrent request", fields)
		result := quotaExceeded(count)
		traceStatus = string(result.Status)
		c.record(ctx, result, startTime)
		return result, nil
	}

	result := &models.GenerationResult{
		Accepted:   final.Accepted,
		ContentRef: final.Content,
		UsedCount:  count,
		Status:     models.StatusAccepted,
		Verified:   c.verifier != nil && final.Accepted,
		Attempts:   attempts,
		Backend:    c.backend.Name(),
	}
	if !final.Accepted {
		result.Status = models.StatusUnverified
		result.Reason = reasonUnverified
		if final.RejectionReason != "" {
			result.Reason += ": " + final.RejectionReason
		}
	}

	traceStatus = string(result.Status)
	c.record(ctx, result, startTime)
	return result, nil
}

// runAttempts calls the backend up to maxAttempts times. It returns the
// accepted attempt, or the last rejected one, or nil when no attempt produced
// content. A done context aborts with its error.
func (c *Controller) runAttempts(
	ctx context.Context,
	req models.RequestContext,
	promptText string,
	trace *observability.Trace,
	fields logger.Fields,
) (*imaging.Attempt, int, error) {
	var last *imaging.Attempt

	for n := 1; n <= c.maxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return nil, n - 1, fmt.Errorf("generation cancelled: %w", err)
		}

		span := trace.Attempt(n, c.backend.Name())
		content, err := c.backend.Generate(ctx, promptText, c.params)
		if err != nil || content == nil {
			span.End(c.model, c.params.Quality, promptText, 0, observability.OutcomeError, map[string]interface{}{"error": errString(err)})
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, n, fmt.Errorf("generation cancelled: %w", ctxErr)
			}
			logger.Warn(fmt.Sprintf("Generation attempt %d failed", n), withField(fields, "error", errString(err)))
			continue
		}

		attempt := c.verify(ctx, content, req.Notes, fields)
		if ctxErr := ctx.Err(); ctxErr != nil {
			span.End(c.model, c.params.Quality, promptText, 1, observability.OutcomeCancelled, nil)
			return nil, n, fmt.Errorf("generation cancelled: %w", ctxErr)
		}
		outcome := models.StatusAccepted
		if !attempt.Accepted {
			outcome = "rejected"
		}
		span.End(c.model, c.params.Quality, promptText, 1, outcome, nil)

		if attempt.Accepted {
			return attempt, n, nil
		}
		last = attempt
	}

	return last, c.maxAttempts, nil
}

// verify judges content; without a verifier every image is accepted
func (c *Controller) verify(ctx context.Context, content *models.ContentRef, notes string, fields logger.Fields) *imaging.Attempt {
	if c.verifier == nil {
		return &imaging.Attempt{Content: content, Accepted: true}
	}

	verdict, err := c.verifier.Check(ctx, content, notes)
	if err != nil {
		logger.Warn("Verification failed, treating image as rejected", withField(fields, "error", err.Error()))
		return &imaging.Attempt{Content: content, RejectionReason: "verification unavailable"}
	}
	if !verdict.Acceptable {
		logger.Info("Image rejected by verifier", withField(fields, "reason", verdict.Reason()))
		return &imaging.Attempt{Content: content, RejectionReason: verdict.Reason()}
	}
	return &imaging.Attempt{Content: content, Accepted: true}
}

func (c *Controller) record(ctx context.Context, result *models.GenerationResult, startTime time.Time) {
	duration := time.Since(startTime)
	logger.LogGenerationRequest(ctx, c.backend.Name(), result.Status, result.Attempts, duration, nil)
	if c.recorder != nil {
		c.recorder.RecordGeneration(ctx, c.backend.Name(), result.Status, result.Attempts, duration)
	}
}

func quotaExceeded(used int) *models.GenerationResult {
	return &models.GenerationResult{
		Accepted:  false,
		UsedCount: used,
		Reason:    reasonQuotaExceeded,
		Status:    models.StatusQuotaExceeded,
	}
}

func withField(fields logger.Fields, key string, value interface{}) logger.Fields {
	out := make(logger.Fields, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out[key] = value
	return out
}

func errString(err error) string {
	if err == nil {
		return "no content"
	}
	return strings.TrimSpace(err.Error())
}
