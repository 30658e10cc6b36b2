package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/gematria-field/api/internal/cipher"
	"github.com/gematria-field/api/internal/platform/config"
	"github.com/gematria-field/api/internal/platform/pagination"
	"github.com/gematria-field/api/internal/repositories"
	"github.com/gematria-field/api/internal/services"
)

// Services bundles the service-layer contracts that handlers and the CLI rely upon. Concrete
// implementations are assembled via dependency injection in NewContainer.
type Services struct {
	Calculator services.CalculatorService
	Resonance  services.ResonanceService
	Phrases    services.PhraseService
	Unfold     services.UnfoldService
	System     services.SystemService
}

// Container wires the cipher registry, repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Ciphers      *cipher.Registry
	Evaluator    *cipher.Evaluator
	Repositories repositories.Registry
	Services     Services
}

type containerOptions struct {
	publisher services.PhraseEventPublisher
	build     services.BuildInfo
	meter     metric.Meter
	clock     func() time.Time
}

// Option customises NewContainer.
type Option func(*containerOptions)

// WithPublisher sets the sink for phrase.saved events.
func WithPublisher(p services.PhraseEventPublisher) Option {
	return func(o *containerOptions) { o.publisher = p }
}

// WithBuildInfo sets the metadata reported by the system service.
func WithBuildInfo(info services.BuildInfo) Option {
	return func(o *containerOptions) { o.build = info }
}

// WithMeter overrides the OpenTelemetry meter for service metrics.
func WithMeter(m metric.Meter) Option {
	return func(o *containerOptions) { o.meter = m }
}

// WithClock overrides the clock used for timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *containerOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// NewContainer constructs the runtime dependencies. A registry without a phrase store yields
// services that calculate and analyse but report store-dependent operations unavailable.
func NewContainer(_ context.Context, cfg config.Config, ciphers *cipher.Registry, reg repositories.Registry, opts ...Option) (*Container, error) {
	if ciphers == nil {
		return nil, errors.New("cipher registry is required")
	}
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}
	options := containerOptions{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	evaluator, err := cipher.NewEvaluator(ciphers)
	if err != nil {
		return nil, fmt.Errorf("build evaluator: %w", err)
	}
	svc, err := buildServices(cfg, evaluator, reg, options)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Ciphers:      ciphers,
		Evaluator:    evaluator,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(cfg config.Config, evaluator *cipher.Evaluator, reg repositories.Registry, opts containerOptions) (Services, error) {
	var svc Services
	ciphers := evaluator.Registry()
	phrases := reg.Phrases()

	calculator, err := services.NewCalculatorService(services.CalculatorServiceDeps{
		Evaluator:     evaluator,
		DefaultActive: cfg.Ciphers.Active,
		MaxActive:     cfg.Ciphers.MaxActive,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build calculator service: %w", err)
	}
	svc.Calculator = calculator

	resonance, err := services.NewResonanceService(services.ResonanceServiceDeps{
		Phrases:        phrases,
		Registry:       ciphers,
		DefaultActive:  cfg.Ciphers.Active,
		MaxActive:      cfg.Ciphers.MaxActive,
		PerCipherLimit: cfg.Matches.PerCipherLimit,
		Page:           pagination.Options{DefaultPageSize: cfg.Matches.PageSize},
		Meter:          opts.meter,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build resonance service: %w", err)
	}
	svc.Resonance = resonance

	phraseSvc, err := services.NewPhraseService(services.PhraseServiceDeps{
		Phrases:      phrases,
		Evaluator:    evaluator,
		Publisher:    opts.publisher,
		SidebarLimit: cfg.Matches.SidebarLimit,
		Clock:        opts.clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build phrase service: %w", err)
	}
	svc.Phrases = phraseSvc

	unfoldSvc, err := services.NewUnfoldService(services.UnfoldServiceDeps{
		Evaluator:        evaluator,
		Resonance:        resonance,
		AggregateCiphers: cfg.Unfold.AggregateCiphers,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build unfold service: %w", err)
	}
	svc.Unfold = unfoldSvc

	if healthRepo := reg.Health(); healthRepo != nil {
		build := opts.build
		if build.Environment == "" {
			build.Environment = cfg.Security.Environment
		}
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Clock:            opts.clock,
			Build:            build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}
