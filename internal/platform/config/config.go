package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gematria-field/api/internal/debounce"
)

const (
	defaultEnvFile              = ".env"
	defaultPort                 = "8080"
	defaultReadTimeout          = 15 * time.Second
	defaultWriteTimeout         = 30 * time.Second
	defaultIdleTimeout          = 120 * time.Second
	defaultSecurityEnvironment  = "local"
	defaultFirestoreCollection  = "gematria"
	defaultSQLiteFile           = "gematria.db"
	defaultSQLiteDir            = ".gematria"
	defaultMaxActiveCiphers     = 6
	defaultPerCipherLimit       = 50
	defaultMatchPageSize        = 25
	defaultSidebarLimit         = 10
	defaultPhraseTopic          = "phrase-events"
	defaultLogLevel             = "info"
	defaultIdempotencyHeader    = "Idempotency-Key"
	defaultIdempotencyTTL       = 24 * time.Hour
	defaultIdempotencyInterval  = time.Hour
	defaultIdempotencyBatchSize = 200
	defaultSavesPerMinute       = 30
)

var (
	defaultActiveCiphers    = []string{"Simple", "English", "Jewish"}
	defaultAggregateCiphers = []string{"Simple", "English", "Jewish"}
)

// Store drivers accepted by API_STORE_DRIVER.
const (
	StoreFirestore = "firestore"
	StoreSQLite    = "sqlite"
	StoreMemory    = "memory"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Store       StoreConfig
	Firebase    FirebaseConfig
	Firestore   FirestoreConfig
	SQLite      SQLiteConfig
	Ciphers     CipherConfig
	Matches     MatchConfig
	Debounce    DebounceConfig
	Unfold      UnfoldConfig
	PubSub      PubSubConfig
	Security    SecurityConfig
	Secrets     SecretsConfig
	Logging     LoggingConfig
	Idempotency IdempotencyConfig
	RateLimits  RateLimitConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// StoreConfig selects the phrase store backend.
type StoreConfig struct {
	Driver string
}

// FirebaseConfig stores Firebase project settings. CredentialsJSON may be a secret reference.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
	CredentialsJSON string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
	Collection   string
}

// SQLiteConfig locates the local database file.
type SQLiteConfig struct {
	Path string
}

// CipherConfig controls the active cipher selection.
type CipherConfig struct {
	Active    []string
	MaxActive int
}

// MatchConfig bounds lookups and listings.
type MatchConfig struct {
	PerCipherLimit int
	PageSize       int
	SidebarLimit   int
}

// DebounceConfig sets the input quiet period for interactive clients.
type DebounceConfig struct {
	Interval time.Duration
}

// UnfoldConfig lists the ciphers concatenated into the unfold aggregate.
type UnfoldConfig struct {
	AggregateCiphers []string
}

// PubSubConfig enables phrase events when both fields are set.
type PubSubConfig struct {
	ProjectID   string
	PhraseTopic string
}

// Enabled reports whether phrase events should be published.
func (c PubSubConfig) Enabled() bool {
	return strings.TrimSpace(c.ProjectID) != "" && strings.TrimSpace(c.PhraseTopic) != ""
}

// SecurityConfig identifies the deployment environment.
type SecurityConfig struct {
	Environment string
}

// SecretsConfig feeds the Secret Manager fetcher.
type SecretsConfig struct {
	DefaultProjectID string
	FallbackFile     string
}

// LoggingConfig sets the minimum log level.
type LoggingConfig struct {
	Level string
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header           string
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// RateLimitConfig caps phrase saves per client session. Zero disables the limit.
type RateLimitConfig struct {
	SavesPerMinute int
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Load assembles the application configuration by combining defaults, .env overrides,
// environment variables, and optional secret manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := newLoaderOptions(opts...)
	if options.secret == nil {
		options.secret = SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
			return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
		})
	}

	lookup, err := options.lookup()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(stringWithDefault(lookup, "API_STORE_DRIVER", "")),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(lookup, "API_FIREBASE_PROJECT_ID", ""),
			CredentialsFile: stringWithDefault(lookup, "API_FIREBASE_CREDENTIALS_FILE", ""),
			CredentialsJSON: stringWithDefault(lookup, "API_FIREBASE_CREDENTIALS_JSON", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "API_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "API_FIRESTORE_EMULATOR_HOST", ""),
			Collection:   stringWithDefault(lookup, "API_FIRESTORE_COLLECTION", defaultFirestoreCollection),
		},
		SQLite: SQLiteConfig{
			Path: stringWithDefault(lookup, "API_SQLITE_PATH", defaultSQLitePath()),
		},
		Ciphers: CipherConfig{
			Active:    csvWithDefault(lookup, "API_CIPHERS_ACTIVE", defaultActiveCiphers),
			MaxActive: intWithDefault(lookup, "API_CIPHERS_MAX_ACTIVE", defaultMaxActiveCiphers),
		},
		Matches: MatchConfig{
			PerCipherLimit: intWithDefault(lookup, "API_MATCHES_PER_CIPHER_LIMIT", defaultPerCipherLimit),
			PageSize:       intWithDefault(lookup, "API_MATCHES_PAGE_SIZE", defaultMatchPageSize),
			SidebarLimit:   intWithDefault(lookup, "API_SIDEBAR_LIMIT", defaultSidebarLimit),
		},
		Debounce: DebounceConfig{
			Interval: debounce.Clamp(durationWithDefault(lookup, "API_DEBOUNCE_INTERVAL", debounce.DefaultInterval)),
		},
		Unfold: UnfoldConfig{
			AggregateCiphers: csvWithDefault(lookup, "API_UNFOLD_AGGREGATE_CIPHERS", defaultAggregateCiphers),
		},
		PubSub: PubSubConfig{
			ProjectID:   stringWithDefault(lookup, "API_PUBSUB_PROJECT_ID", ""),
			PhraseTopic: stringWithDefault(lookup, "API_PUBSUB_PHRASE_TOPIC", defaultPhraseTopic),
		},
		Security: SecurityConfig{
			Environment: strings.ToLower(stringWithDefault(lookup, "API_SECURITY_ENVIRONMENT", defaultSecurityEnvironment)),
		},
		Secrets: SecretsConfig{
			DefaultProjectID: stringWithDefault(lookup, "API_SECRET_DEFAULT_PROJECT_ID", ""),
			FallbackFile:     stringWithDefault(lookup, "API_SECRET_FALLBACK_FILE", ""),
		},
		Logging: LoggingConfig{
			Level: strings.ToLower(stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel)),
		},
		Idempotency: IdempotencyConfig{
			Header:           stringWithDefault(lookup, "API_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:              durationWithDefault(lookup, "API_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			CleanupInterval:  durationWithDefault(lookup, "API_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencyInterval),
			CleanupBatchSize: intWithDefault(lookup, "API_IDEMPOTENCY_CLEANUP_BATCH", defaultIdempotencyBatchSize),
		},
		RateLimits: RateLimitConfig{
			SavesPerMinute: intWithDefault(lookup, "API_RATELIMIT_SAVES_PER_MINUTE", defaultSavesPerMinute),
		},
	}

	// Firestore project defaults to Firebase project when unspecified.
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = StoreMemory
		if cfg.Firestore.ProjectID != "" {
			cfg.Store.Driver = StoreFirestore
		}
	}
	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Firestore.ProjectID
	}
	if cfg.Secrets.DefaultProjectID == "" {
		cfg.Secrets.DefaultProjectID = cfg.Firebase.ProjectID
	}

	resolved, err := resolveSecret(ctx, cfg.Firebase.CredentialsJSON, options.secret)
	if err != nil {
		return Config{}, err
	}
	cfg.Firebase.CredentialsJSON = resolved

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	switch cfg.Store.Driver {
	case StoreFirestore:
		if cfg.Firestore.ProjectID == "" {
			missing = append(missing, "Firestore.ProjectID")
		}
		if strings.TrimSpace(cfg.Firestore.Collection) == "" {
			missing = append(missing, "Firestore.Collection")
		}
	case StoreSQLite:
		if strings.TrimSpace(cfg.SQLite.Path) == "" {
			missing = append(missing, "SQLite.Path")
		}
	case StoreMemory:
	default:
		missing = append(missing, "Store.Driver")
	}
	if cfg.Ciphers.MaxActive <= 0 {
		missing = append(missing, "Ciphers.MaxActive")
	}
	if len(cfg.Ciphers.Active) == 0 || len(cfg.Ciphers.Active) > cfg.Ciphers.MaxActive {
		missing = append(missing, "Ciphers.Active")
	}
	if cfg.Matches.PerCipherLimit <= 0 {
		missing = append(missing, "Matches.PerCipherLimit")
	}
	if cfg.Matches.PageSize <= 0 {
		missing = append(missing, "Matches.PageSize")
	}
	if cfg.Matches.SidebarLimit <= 0 {
		missing = append(missing, "Matches.SidebarLimit")
	}
	if n := len(cfg.Unfold.AggregateCiphers); n < 2 || n > 3 {
		missing = append(missing, "Unfold.AggregateCiphers")
	}
	if strings.TrimSpace(cfg.Idempotency.Header) == "" {
		missing = append(missing, "Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		missing = append(missing, "Idempotency.TTL")
	}
	if cfg.Idempotency.CleanupInterval <= 0 {
		missing = append(missing, "Idempotency.CleanupInterval")
	}
	if cfg.Idempotency.CleanupBatchSize <= 0 {
		missing = append(missing, "Idempotency.CleanupBatchSize")
	}

	if cfg.RateLimits.SavesPerMinute < 0 {
		missing = append(missing, "RateLimits.SavesPerMinute")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func defaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return defaultSQLiteFile
	}
	return filepath.Join(home, defaultSQLiteDir, defaultSQLiteFile)
}
