package cli

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/MMzeidan/zeidan-chat/pkg/adapter"
	"github.com/MMzeidan/zeidan-chat/pkg/identity"
	"github.com/MMzeidan/zeidan-chat/pkg/model"
	"github.com/MMzeidan/zeidan-chat/pkg/repository"
	"github.com/MMzeidan/zeidan-chat/pkg/usecase/chat"
	"github.com/MMzeidan/zeidan-chat/pkg/utils/logging"
)

// config holds configuration values
type config struct {
	// Store
	project  string
	database string
	appID    string
	local    bool

	// Identity
	firebaseAPIKey string
	user           string

	// Generation
	geminiAPIKey string
	geminiModel  string

	// Behavior
	capacity int64
	prompts  string
	logLevel string
}

// adminConfig holds curation-only configuration values
type adminConfig struct {
	password     string
	passwordHash string
	bucket       string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "app-id",
			Usage:       "Application namespace within the store",
			Value:       "chat-w-zeidan-app",
			Sources:     cli.EnvVars("ZEIDAN_APP_ID"),
			Destination: &cfg.appID,
		},
		&cli.BoolFlag{
			Name:        "local",
			Usage:       "Use an in-memory store instead of Firestore",
			Sources:     cli.EnvVars("ZEIDAN_LOCAL"),
			Destination: &cfg.local,
		},
		&cli.StringFlag{
			Name:        "firebase-api-key",
			Usage:       "API key for anonymous sign-in (empty: local identity)",
			Sources:     cli.EnvVars("FIREBASE_API_KEY"),
			Destination: &cfg.firebaseAPIKey,
		},
		&cli.StringFlag{
			Name:        "user",
			Aliases:     []string{"u"},
			Usage:       "Pin the session to a known user ID instead of signing in",
			Sources:     cli.EnvVars("ZEIDAN_USER_ID"),
			Destination: &cfg.user,
		},
		&cli.IntFlag{
			Name:        "capacity",
			Usage:       "Replica capacity (most recent records kept locally)",
			Value:       repository.DefaultCapacity,
			Sources:     cli.EnvVars("ZEIDAN_CAPACITY"),
			Destination: &cfg.capacity,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("ZEIDAN_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
	}
}

// llmFlags returns flags for generation-related configuration
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Generative model name",
			Value:       "gemini-2.0-flash",
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
		&cli.StringFlag{
			Name:        "prompts",
			Usage:       "Path to a YAML prompt pack overriding the built-in texts",
			Sources:     cli.EnvVars("ZEIDAN_PROMPTS"),
			Destination: &cfg.prompts,
		},
	}
}

// adminFlags returns flags for curation commands
func adminFlags(cfg *adminConfig) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "admin-password",
			Usage:       "Curation password",
			Sources:     cli.EnvVars("ZEIDAN_ADMIN_PASSWORD"),
			Destination: &cfg.password,
		},
		&cli.StringFlag{
			Name:        "admin-password-hash",
			Usage:       "Hex SHA-256 of the curation password",
			Sources:     cli.EnvVars("ZEIDAN_ADMIN_PASSWORD_HASH"),
			Destination: &cfg.passwordHash,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket for FAQ images",
			Sources:     cli.EnvVars("ZEIDAN_IMAGE_BUCKET"),
			Destination: &cfg.bucket,
		},
	}
}

// setupLogger installs the process-wide logger and returns a context
// carrying it.
func (cfg *config) setupLogger(ctx context.Context) context.Context {
	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// newStore creates the authoritative store client
func (cfg *config) newStore(ctx context.Context) (repository.Store, error) {
	if cfg.local {
		return repository.NewMemory(), nil
	}

	if cfg.project == "" {
		return nil, goerr.New("project is required (or use --local)")
	}

	store, err := repository.NewFirestore(ctx, cfg.project, cfg.database, cfg.appID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create store")
	}
	return store, nil
}

// newIdentity resolves the session identity source. A pinned user skips the
// provider entirely.
func (cfg *config) newIdentity(ctx context.Context) (repository.IdentitySource, error) {
	if cfg.user != "" {
		return identity.Static(model.Identity(cfg.user)), nil
	}

	provider, err := identity.New(ctx, cfg.firebaseAPIKey)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create identity provider")
	}
	provider.Acquire(ctx)
	return provider, nil
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiAPIKey == "" {
		return nil, goerr.New("gemini-api-key is required")
	}
	return adapter.NewGemini(ctx, cfg.geminiAPIKey, adapter.WithGenerativeModel(cfg.geminiModel))
}

// loadPrompts returns the prompt set, overlaying a pack file when given
func (cfg *config) loadPrompts() (chat.Prompts, error) {
	if cfg.prompts == "" {
		return chat.DefaultPrompts(), nil
	}
	return chat.LoadPrompts(cfg.prompts)
}

// requireAdmin gates curation commands on the configured password hash.
func (cfg *adminConfig) requireAdmin() error {
	if cfg.passwordHash == "" {
		return goerr.New("admin-password-hash is not configured")
	}

	want, err := hex.DecodeString(cfg.passwordHash)
	if err != nil {
		return goerr.Wrap(err, "admin-password-hash is not valid hex")
	}

	got := sha256.Sum256([]byte(cfg.password))
	if subtle.ConstantTimeCompare(got[:], want) != 1 {
		return goerr.New("admin password mismatch")
	}

	return nil
}
