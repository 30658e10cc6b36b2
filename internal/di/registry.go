package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gematria-field/api/internal/cipher"
	"github.com/gematria-field/api/internal/platform/config"
	pfirestore "github.com/gematria-field/api/internal/platform/firestore"
	"github.com/gematria-field/api/internal/repositories"
	firestoreRepo "github.com/gematria-field/api/internal/repositories/firestore"
	"github.com/gematria-field/api/internal/repositories/memory"
	"github.com/gematria-field/api/internal/repositories/sqlite"
)

const (
	storeCheckName    = "phraseStore"
	storeCheckTimeout = 1500 * time.Millisecond
	storeDialTimeout  = 5 * time.Second
)

var errStoreNotConfigured = errors.New("phrase store unavailable")

// StoreRegistry implements repositories.Registry over the configured phrase store. A registry whose
// store could not be opened is store-less: Phrases returns nil and readiness reports the store down.
type StoreRegistry struct {
	driver    string
	phrases   repositories.PhraseRepository
	health    repositories.HealthRepository
	firestore *pfirestore.Provider
	closers   []func(context.Context) error
}

var _ repositories.Registry = (*StoreRegistry)(nil)

type registryOptions struct {
	logger *zap.Logger
	checks []repositories.DependencyCheck
}

// RegistryOption customises OpenRegistry.
type RegistryOption func(*registryOptions)

// WithRegistryLogger sets the logger used for store start-up warnings.
func WithRegistryLogger(logger *zap.Logger) RegistryOption {
	return func(o *registryOptions) { o.logger = logger }
}

// WithHealthChecks adds dependency checks reported next to the phrase store.
func WithHealthChecks(checks ...repositories.DependencyCheck) RegistryOption {
	return func(o *registryOptions) { o.checks = append(o.checks, checks...) }
}

// OpenRegistry opens the store selected by cfg.Store.Driver. A store that fails to open or answer a
// ping is logged and the registry runs store-less; only health wiring errors are returned.
func OpenRegistry(ctx context.Context, cfg config.Config, ciphers *cipher.Registry, opts ...RegistryOption) (*StoreRegistry, error) {
	if ciphers == nil {
		return nil, errors.New("di: cipher registry is required")
	}
	options := registryOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}

	reg := &StoreRegistry{driver: cfg.Store.Driver}
	ping, err := reg.open(ctx, cfg, ciphers)
	if err != nil {
		options.logger.Warn("phrase store unavailable; running store-less",
			zap.String("driver", cfg.Store.Driver),
			zap.Error(err),
		)
		_ = reg.Close(ctx)
		reg.phrases = nil
		reg.firestore = nil
		reg.closers = nil
		ping = func(context.Context) error { return errStoreNotConfigured }
	}

	checks := []repositories.DependencyCheck{{Name: storeCheckName, Timeout: storeCheckTimeout, Check: ping}}
	health, err := repositories.NewDependencyHealthRepository(append(checks, options.checks...))
	if err != nil {
		_ = reg.Close(ctx)
		return nil, fmt.Errorf("di: build health repository: %w", err)
	}
	reg.health = health
	return reg, nil
}

// open wires the driver's repository and returns its readiness probe.
func (r *StoreRegistry) open(ctx context.Context, cfg config.Config, ciphers *cipher.Registry) (func(context.Context) error, error) {
	switch cfg.Store.Driver {
	case config.StoreFirestore:
		provider := pfirestore.NewProvider(cfg.Firestore,
			pfirestore.WithFirebase(cfg.Firebase),
			pfirestore.WithDialTimeout(storeDialTimeout),
		)
		r.closers = append(r.closers, provider.Close)
		dialCtx, cancel := context.WithTimeout(ctx, storeDialTimeout)
		defer cancel()
		if err := provider.Ping(dialCtx); err != nil {
			return nil, err
		}
		repo, err := firestoreRepo.NewPhraseRepository(provider, ciphers)
		if err != nil {
			return nil, err
		}
		r.phrases = repo
		r.firestore = provider
		return provider.Ping, nil
	case config.StoreSQLite:
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		repo, err := sqlite.NewPhraseRepository(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		r.closers = append(r.closers, func(context.Context) error { return repo.Close() })
		r.phrases = repo
		return repo.Ping, nil
	case config.StoreMemory:
		repo := memory.NewPhraseRepository()
		r.closers = append(r.closers, func(context.Context) error {
			repo.Close()
			return nil
		})
		r.phrases = repo
		return func(context.Context) error { return nil }, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// Driver reports the configured store driver.
func (r *StoreRegistry) Driver() string { return r.driver }

// StoreLess reports whether the registry runs without a phrase store.
func (r *StoreRegistry) StoreLess() bool { return r.phrases == nil }

// FirestoreProvider returns the shared provider when the Firestore store is active, else nil.
func (r *StoreRegistry) FirestoreProvider() *pfirestore.Provider { return r.firestore }

func (r *StoreRegistry) Phrases() repositories.PhraseRepository { return r.phrases }

func (r *StoreRegistry) Health() repositories.HealthRepository { return r.health }

// Close releases store clients in reverse order of creation.
func (r *StoreRegistry) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
