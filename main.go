package main

import (
	"context"
	"log"
	"time"

	"github.com/Conceptual-Machines/giftbox-api/internal/api"
	"github.com/Conceptual-Machines/giftbox-api/internal/config"
	"github.com/Conceptual-Machines/giftbox-api/internal/database"
	"github.com/Conceptual-Machines/giftbox-api/internal/imaging"
	"github.com/Conceptual-Machines/giftbox-api/internal/lexicon"
	"github.com/Conceptual-Machines/giftbox-api/internal/logger"
	"github.com/Conceptual-Machines/giftbox-api/internal/metrics"
	"github.com/Conceptual-Machines/giftbox-api/internal/models"
	"github.com/Conceptual-Machines/giftbox-api/internal/observability"
	"github.com/Conceptual-Machines/giftbox-api/internal/quota"
	"github.com/Conceptual-Machines/giftbox-api/internal/session"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const (
	sentryFlushTimeout    = 2 * time.Second
	environmentProduction = "production"
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

// GetVersion returns the current release version
func GetVersion() string {
	return releaseVersion
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load and validate configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize Sentry
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			Release:          "giftbox-api@" + releaseVersion,          // Use embedded release version
			EnableTracing:    true,                                     // Enable tracing for spans
			TracesSampleRate: 1.0,                                      // 100% sampling for now, adjust based on volume
			EnableLogs:       true,                                     // Enable Sentry Logs feature
			Debug:            cfg.Environment != environmentProduction, // Enable debug in non-prod
			BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
				// Filter out sensitive data
				if event.Request != nil {
					event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
				}
				return event
			},
		}); err != nil {
			log.Printf("Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s, release: %s)", cfg.Environment, releaseVersion)
			// Flush on shutdown
			defer sentry.Flush(sentryFlushTimeout)
		}
	} else {
		log.Println("⚠️  Sentry not configured (SENTRY_DSN not set)")
	}

	ctx := context.Background()

	lex, err := loadLexicon(cfg.LexiconPath)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to load lexicon:", err)
	}

	store, err := openQuotaStore(ctx, cfg)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to open quota store:", err)
	}

	factory := imaging.NewBackendFactory(cfg.OpenAIAPIKey, cfg.GeminiAPIKey)
	backend, err := factory.GetBackend(ctx, cfg.ImageBackend, cfg.ImageModel)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to create image backend:", err)
	}
	log.Printf("🎨 Image backend: %s (model: %s)", backend.Name(), imaging.ModelName(backend))

	var verifier imaging.Verifier
	if cfg.VerificationEnabled {
		verifier, err = factory.GetVerifier(ctx, cfg.VerifierProvider, cfg.VerifierModel)
		if err != nil {
			sentry.CaptureException(err)
			log.Fatal("Failed to create verifier:", err)
		}
		log.Printf("🔎 Verification: ✅ ENABLED (provider: %s)", verifier.Name())
	} else {
		log.Println("🔎 Verification: DISABLED")
	}

	cloudwatchClient, err := metrics.NewClient(ctx, cfg.Environment)
	if err != nil {
		log.Printf("⚠️  CloudWatch metrics unavailable: %v", err)
	}
	recorder := metrics.NewRecorder(cloudwatchClient, metrics.NewSentryMetrics())

	langfuse := observability.InitializeLangfuse(ctx, cfg, "giftbox-api@"+releaseVersion)

	controller, err := session.NewController(session.Options{
		Lexicon: lex,
		Policy: models.BrandPolicy{
			AllowList:  cfg.BrandAllowList,
			DenyList:   cfg.BrandDenyList,
			StrictMode: cfg.StrictBrandMode,
		},
		Store:       store,
		Backend:     backend,
		Verifier:    verifier,
		Placeholder: imaging.NewSVGPlaceholder(),
		Params: imaging.RenderParams{
			AspectRatio:  cfg.ImageAspectRatio,
			OutputFormat: cfg.ImageOutputFormat,
			Quality:      cfg.ImageQuality,
		},
		MaxGenerations: cfg.MaxGenerations,
		MaxAttempts:    cfg.MaxAttempts,
		Recorder:       recorder,
		Langfuse:       langfuse,
		Model:          imaging.ModelName(backend),
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to create session controller:", err)
	}

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	router := api.SetupRouter(cfg, controller, store, recorder, GetVersion())

	log.Printf("🚀 Starting server on port %s (max generations per session: %d)", cfg.Port, cfg.MaxGenerations)
	if err := router.Run(":" + cfg.Port); err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to start server:", err)
	}
}

// loadLexicon reads the override file when configured, otherwise the embedded tables
func loadLexicon(path string) (*lexicon.Lexicon, error) {
	if path == "" {
		return lexicon.Load()
	}
	lex, err := lexicon.LoadFile(path)
	if err != nil {
		return nil, err
	}
	log.Printf("📚 Lexicon loaded from %s", path)
	return lex, nil
}

// openQuotaStore builds the configured store. An unreachable Redis falls back
// to memory; an unreachable Postgres is fatal.
func openQuotaStore(ctx context.Context, cfg *config.Config) (quota.Store, error) {
	kind, err := quota.ParseKind(cfg.QuotaStore)
	if err != nil {
		return nil, err
	}

	switch kind {
	case quota.KindPostgres:
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
		log.Println("🧮 Quota store: postgres")
		return quota.NewPostgresStore(db), nil

	case quota.KindRedis:
		client, err := quota.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("⚠️  Redis unavailable, falling back to in-memory quota store", logger.Fields{"error": err.Error()})
			logger.LogToSentry(sentry.LevelWarning, "Redis quota store unavailable, counts are per instance", logger.Fields{"error": err.Error()})
			return quota.NewMemoryStore(), nil
		}
		log.Println("🧮 Quota store: redis")
		return quota.NewRedisStore(client), nil

	default:
		log.Println("🧮 Quota store: memory (counts reset on restart)")
		return quota.NewMemoryStore(), nil
	}
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string)
	sensitiveKeys := map[string]bool{
		"authorization": true,
		"cookie":        true,
		"x-api-key":     true,
		"x-session-id":  true,
	}

	for k, v := range headers {
		if sensitiveKeys[k] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
