package observability

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/Conceptual-Machines/giftbox-api/internal/config"
	langfuse "github.com/henomis/langfuse-go"
	"github.com/henomis/langfuse-go/model"
)

// Attempt outcomes that mark a span as failed
const (
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// LangfuseClient records one trace per generation request
type LangfuseClient struct {
	client  *langfuse.Langfuse
	enabled bool
	release string
}

var globalClient *LangfuseClient

// InitializeLangfuse initializes the global Langfuse client. The SDK reads
// LANGFUSE_PUBLIC_KEY, LANGFUSE_SECRET_KEY and LANGFUSE_HOST from the environment.
func InitializeLangfuse(ctx context.Context, cfg *config.Config, release string) *LangfuseClient {
	if !cfg.LangfuseEnabled || cfg.LangfuseSecretKey == "" || cfg.LangfusePublicKey == "" {
		log.Println("⚠️  Langfuse not configured (LANGFUSE_ENABLED=false or keys not set)")
		globalClient = &LangfuseClient{}
		return globalClient
	}

	globalClient = &LangfuseClient{
		client:  langfuse.New(ctx),
		enabled: true,
		release: release,
	}
	log.Printf("✅ Langfuse initialized (host: %s)", cfg.LangfuseHost)
	return globalClient
}

// GetClient returns the global Langfuse client, disabled until initialized
func GetClient() *LangfuseClient {
	if globalClient == nil {
		return &LangfuseClient{}
	}
	return globalClient
}

// IsEnabled returns whether Langfuse is enabled
func (c *LangfuseClient) IsEnabled() bool {
	return c.enabled && c.client != nil
}

// StartTrace opens a trace grouped under the browser session
func (c *LangfuseClient) StartTrace(ctx context.Context, sessionID, name string, metadata map[string]interface{}) *Trace {
	if !c.IsEnabled() {
		return &Trace{ctx: ctx}
	}

	now := time.Now()
	trace, err := c.client.Trace(&model.Trace{
		Name:      name,
		SessionID: sessionID,
		Timestamp: &now,
		Release:   c.release,
		Metadata:  metadata,
	})
	if err != nil {
		log.Printf("⚠️  Failed to create Langfuse trace: %v", err)
		return &Trace{ctx: ctx}
	}

	return &Trace{
		trace:   trace,
		enabled: true,
		ctx:     ctx,
		client:  c.client,
	}
}

// Trace is the Langfuse trace of one generation request
type Trace struct {
	trace   *model.Trace
	enabled bool
	ctx     context.Context
	client  *langfuse.Langfuse
}

// Attempt opens a generation span for the nth backend call
func (t *Trace) Attempt(n int, backend string) *Attempt {
	if !t.enabled {
		return &Attempt{}
	}

	now := time.Now()
	gen, err := t.client.Generation(&model.Generation{
		TraceID:   t.trace.ID,
		Name:      attemptName(n),
		StartTime: &now,
		Metadata:  map[string]interface{}{"backend": backend, "attempt": n},
	}, nil)
	if err != nil {
		log.Printf("⚠️  Failed to create Langfuse generation: %v", err)
		return &Attempt{}
	}

	return &Attempt{generation: gen, enabled: true, client: t.client}
}

// Finish stores the request outcome on the trace and flushes queued events
func (t *Trace) Finish(status string, attempts int) {
	if !t.enabled {
		return
	}

	t.trace.Output = map[string]interface{}{"status": status, "attempts": attempts}
	if _, err := t.client.Trace(t.trace); err != nil {
		log.Printf("⚠️  Failed to update Langfuse trace %s: %v", t.trace.ID, err)
	}
	t.client.Flush(t.ctx)
}

// Attempt is the Langfuse generation span of one backend call
type Attempt struct {
	generation *model.Generation
	enabled    bool
	client     *langfuse.Langfuse
}

// End records the prompt, outcome and estimated image cost, then closes the span
func (a *Attempt) End(modelName, quality, promptText string, images int, outcome string, metadata map[string]interface{}) {
	if !a.enabled {
		return
	}

	now := time.Now()
	a.generation.EndTime = &now
	a.generation.Model = modelName
	a.generation.Input = promptText
	a.generation.Output = outcome
	a.generation.Usage = imageUsage(modelName, quality, images)
	a.generation.StatusMessage = "estimated cost " + FormatCost(a.generation.Usage.TotalCost)
	a.generation.Metadata = attemptMetadata(a.generation.Metadata, modelName, quality, outcome, metadata)
	a.generation.Level = attemptLevel(outcome)

	if _, err := a.client.GenerationEnd(a.generation); err != nil {
		log.Printf("⚠️  Failed to end Langfuse generation: %v", err)
	}
}

func attemptName(n int) string {
	return "attempt-" + strconv.Itoa(n)
}

func imageUsage(modelName, quality string, images int) model.Usage {
	return model.Usage{
		Output:    images,
		Total:     images,
		Unit:      model.ModelUsageUnitImages,
		TotalCost: CalculateImageCost(modelName, quality, images),
	}
}

// attemptMetadata merges the span's opening metadata with the attempt result
func attemptMetadata(base interface{}, modelName, quality, outcome string, extra map[string]interface{}) map[string]interface{} {
	merged := map[string]interface{}{}
	if md, ok := base.(map[string]interface{}); ok {
		for k, v := range md {
			merged[k] = v
		}
	}
	merged["model"] = modelName
	merged["quality"] = quality
	merged["outcome"] = outcome
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func attemptLevel(outcome string) model.ObservationLevel {
	switch outcome {
	case OutcomeError:
		return model.ObservationLevelError
	case OutcomeCancelled:
		return model.ObservationLevelWarning
	default:
		return model.ObservationLevelDefault
	}
}
