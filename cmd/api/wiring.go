package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/gematria-field/api/internal/di"
	"github.com/gematria-field/api/internal/handlers"
	"github.com/gematria-field/api/internal/platform/config"
	"github.com/gematria-field/api/internal/platform/idempotency"
	"github.com/gematria-field/api/internal/platform/jobs"
	"github.com/gematria-field/api/internal/platform/observability"
	"github.com/gematria-field/api/internal/platform/secrets"
	"github.com/gematria-field/api/internal/repositories"
	"github.com/gematria-field/api/internal/services"
)

const secretHealthReference = "secret://system/healthz?version=latest"

func buildInfoFromEnv(env map[string]string, cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(env["API_BUILD_VERSION"])
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(env["API_BUILD_COMMIT_SHA"])
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(cfg.Security.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}

// newSecretFetcher runs before config.Load so that secret:// values can be resolved during loading.
func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		return strings.TrimSpace(env[key])
	}

	defaultProject := lookup("API_SECRET_DEFAULT_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("API_FIREBASE_PROJECT_ID")
	}

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(lookup("API_SECRET_FALLBACK_FILE")),
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}
	if credentialsFile := lookup("API_FIREBASE_CREDENTIALS_FILE"); credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}
	return secrets.NewFetcher(ctx, opts...)
}

// secretManagerChecks probes Secret Manager when the fetcher talks to it. A missing probe secret
// still proves the API answered.
func secretManagerChecks(fetcher *secrets.Fetcher) []repositories.DependencyCheck {
	if fetcher == nil || !fetcher.Remote() {
		return nil
	}
	return []repositories.DependencyCheck{{
		Name:    "secretManager",
		Timeout: time.Second,
		Check: func(ctx context.Context) error {
			_, err := fetcher.Resolve(ctx, secretHealthReference)
			if err == nil || status.Code(err) == codes.NotFound {
				return nil
			}
			return err
		},
	}}
}

// newPhrasePublisher returns a nil publisher when Pub/Sub is not configured. The returned stop
// function is always callable.
func newPhrasePublisher(ctx context.Context, cfg config.Config) (services.PhraseEventPublisher, func(), error) {
	noop := func() {}
	if !cfg.PubSub.Enabled() {
		return nil, noop, nil
	}
	var opts []option.ClientOption
	if file := strings.TrimSpace(cfg.Firebase.CredentialsFile); file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID, opts...)
	if err != nil {
		return nil, noop, fmt.Errorf("pubsub client: %w", err)
	}
	publisher, err := jobs.NewPubSubPhrasePublisher(client.Topic(cfg.PubSub.PhraseTopic))
	if err != nil {
		_ = client.Close()
		return nil, noop, err
	}
	return publisher, func() {
		publisher.Stop()
		_ = client.Close()
	}, nil
}

// newIdempotencyStore shares the Firestore client when that store is active so replays survive
// restarts and span instances.
func newIdempotencyStore(reg *di.StoreRegistry) idempotency.Store {
	if provider := reg.FirestoreProvider(); provider != nil {
		return idempotency.NewFirestoreStore(provider)
	}
	return idempotency.NewMemoryStore()
}

func newRouter(c *di.Container, store idempotency.Store, logger *zap.Logger, build services.BuildInfo) http.Handler {
	cfg := c.Config
	projectID := traceProjectID(cfg)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
		observability.SessionMiddleware,
	}

	healthOpts := []handlers.HealthOption{handlers.WithHealthBuildInfo(build)}
	if c.Services.System != nil {
		healthOpts = append(healthOpts, handlers.WithHealthSystemService(c.Services.System))
	}

	calculations := handlers.NewCalculationHandlers(c.Services.Calculator, c.Services.Resonance)
	phrases := handlers.NewPhraseHandlers(c.Services.Phrases,
		handlers.WithSaveRateLimit(cfg.RateLimits.SavesPerMinute, time.Minute, nil),
		handlers.WithSaveMiddlewares(idempotency.Middleware(store,
			idempotency.WithHeader(cfg.Idempotency.Header),
			idempotency.WithTTL(cfg.Idempotency.TTL),
		)),
	)
	unfold := handlers.NewUnfoldHandlers(c.Services.Unfold)
	ciphers := handlers.NewCipherHandlers(c.Ciphers, cfg.Ciphers.Active)

	return handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(healthOpts...)),
		handlers.WithCalculationRoutes(calculations.Routes),
		handlers.WithPhraseRoutes(phrases.Routes),
		handlers.WithUnfoldRoutes(unfold.Routes),
		handlers.WithCipherRoutes(ciphers.Routes),
	)
}
