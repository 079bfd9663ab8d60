package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bookapp/internal/activity"
	"bookapp/internal/activity/ch"
	"bookapp/internal/config"
	"bookapp/internal/identity"
	"bookapp/internal/media"
	"bookapp/internal/remote"
	"bookapp/internal/remote/mongodb"
	"bookapp/internal/repository"
	"bookapp/internal/storage"
	"bookapp/internal/storage/sqlite"
	"bookapp/internal/storage/stubs"
)

// App holds the wired stores, identity provider and repositories
type App struct {
	config *config.Config
	logger *zap.Logger

	db       storage.Storage
	remote   remote.Store // nil when no remote store is configured
	recorder activity.Recorder
	media    media.Store // nil when image storage is not configured

	Identity *identity.Service
	Books    *repository.BookRepository
	Users    *repository.UserRepository
}

// New loads .env and the configuration, then builds the application
func New(ctx context.Context) (*App, error) {
	envErr := godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if envErr != nil {
		logger.Debug("No .env file found, using system environment variables")
	}

	return NewWithConfig(ctx, cfg, logger)
}

// NewWithConfig builds the application from an explicit configuration
func NewWithConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{config: cfg, logger: logger}

	if err := a.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := a.initRemote(ctx); err != nil {
		a.Shutdown(ctx)
		return nil, err
	}
	a.initIdentity()
	a.initActivity(ctx)
	if err := a.initMedia(ctx); err != nil {
		a.Shutdown(ctx)
		return nil, err
	}
	a.initRepositories()

	if cfg.SeedSampleData {
		if err := repository.SeedSampleData(ctx, a.Books, a.Users, logger); err != nil {
			logger.Error("Error adding sample data", zap.Error(err))
		}
	}
	return a, nil
}

// NewLogger builds the process logger for a level name. "debug" selects the
// development encoder.
func NewLogger(level string) (*zap.Logger, error) {
	if strings.EqualFold(level, "debug") {
		return zap.NewDevelopment()
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}

// initDatabase opens the local store and applies its migrations
func (a *App) initDatabase(ctx context.Context) error {
	var db storage.Storage
	if a.config.UseMockDB {
		a.logger.Info("Using in-memory database")
		db = stubs.NewMockDB(a.logger)
	} else {
		a.logger.Info("Opening SQLite database", zap.String("path", a.config.DBPath))
		sqliteDB, err := sqlite.NewSQLiteDB(a.config.DBPath, a.logger)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		db = sqliteDB
	}

	if err := db.Initialize(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.logger.Info("Database initialized successfully")

	a.db = db
	return nil
}

func (a *App) initRemote(ctx context.Context) error {
	if !a.config.RemoteEnabled() {
		a.logger.Info("No remote store configured, running local only")
		return nil
	}

	store, err := mongodb.NewMongoStore(ctx, a.config.MongoURI, a.config.MongoDatabase, a.logger)
	if err != nil {
		return err
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		store.Close(ctx)
		return err
	}
	a.remote = store
	return nil
}

func (a *App) initIdentity() {
	var accounts identity.AccountStore = identity.NewMemoryAccounts()
	if store, ok := a.remote.(*mongodb.MongoStore); ok {
		accounts = store
	}

	var verifier identity.TokenVerifier
	if len(a.config.GoogleClientIDs) > 0 {
		verifier = identity.GoogleVerifier{ClientIDs: a.config.GoogleClientIDs}
	}

	secret := a.config.JWTSecret
	if secret == "" {
		// Offline accounts live only as long as the process
		secret = uuid.NewString()
	}
	a.Identity = identity.NewService(accounts, verifier, []byte(secret), a.logger)
}

// initActivity connects the analytics recorder. Analytics failures never
// stop the application.
func (a *App) initActivity(ctx context.Context) {
	a.recorder = activity.Nop{}
	if !a.config.AnalyticsEnabled() {
		return
	}

	tlsStatus := "without TLS"
	if a.config.ClickHouseUseTLS {
		tlsStatus = "with TLS"
	}
	a.logger.Info("Connecting to ClickHouse",
		zap.String("host", a.config.ClickHouseHost),
		zap.Int("port", a.config.ClickHousePort),
		zap.String("database", a.config.ClickHouseDatabase),
		zap.String("user", a.config.ClickHouseUser),
		zap.String("tls", tlsStatus))

	options := ch.Options(
		a.config.ClickHouseHost,
		a.config.ClickHousePort,
		a.config.ClickHouseDatabase,
		a.config.ClickHouseUser,
		a.config.ClickHousePassword,
		a.config.ClickHouseUseTLS,
	)
	recorder, err := ch.NewRecorder(ctx, options, a.logger)
	if err != nil {
		a.logger.Warn("Activity analytics disabled", zap.Error(err))
		return
	}
	a.recorder = recorder
}

func (a *App) initMedia(ctx context.Context) error {
	if !a.config.MediaEnabled() {
		return nil
	}
	store, err := media.NewS3Store(ctx, media.S3Options{
		Bucket:          a.config.S3Bucket,
		Region:          a.config.S3Region,
		Endpoint:        a.config.S3Endpoint,
		AccessKeyID:     a.config.S3AccessKeyID,
		SecretAccessKey: a.config.S3SecretKey,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to set up image storage: %w", err)
	}
	a.media = store
	return nil
}

func (a *App) initRepositories() {
	var (
		bookMirror remote.BookMirror
		userMirror remote.UserMirror
	)
	if a.remote != nil {
		bookMirror = a.remote
		userMirror = a.remote
	}
	a.Books = repository.NewBookRepository(a.db, bookMirror, a.Identity, a.recorder, a.logger)
	a.Users = repository.NewUserRepository(a.db, userMirror, a.logger)
}

func (a *App) Logger() *zap.Logger {
	return a.logger
}

func (a *App) Config() *config.Config {
	return a.config
}

func (a *App) Recorder() activity.Recorder {
	return a.recorder
}

// Bookstores returns the bookstore collection, or nil when running local only
func (a *App) Bookstores() remote.Bookstores {
	if a.remote == nil {
		return nil
	}
	return a.remote
}

// Media returns the image store, or nil when it is not configured
func (a *App) Media() media.Store {
	return a.media
}

// SetMedia replaces the image store
func (a *App) SetMedia(store media.Store) {
	a.media = store
}

// RestoreSession resumes the session saved by SaveSession. A stale or
// invalid session file is removed.
func (a *App) RestoreSession(ctx context.Context) (*identity.User, error) {
	data, err := os.ReadFile(a.config.SessionFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	user, err := a.Identity.Restore(ctx, strings.TrimSpace(string(data)))
	if err != nil {
		a.logger.Debug("Discarding saved session", zap.Error(err))
		return nil, a.ClearSession()
	}
	return user, nil
}

// SaveSession writes the user's session token so later runs can restore it
func (a *App) SaveSession(user *identity.User) error {
	if user == nil || user.Token == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(a.config.SessionFile), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(a.config.SessionFile, []byte(user.Token), 0o600); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (a *App) ClearSession() error {
	if err := os.Remove(a.config.SessionFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

// Shutdown closes every store. Errors are logged and the first is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var first error
	keep := func(what string, err error) {
		if err == nil {
			return
		}
		a.logger.Error("Error closing "+what, zap.Error(err))
		if first == nil {
			first = err
		}
	}

	if a.recorder != nil {
		keep("activity recorder", a.recorder.Close())
	}
	if a.remote != nil {
		keep("remote store", a.remote.Close(ctx))
	}
	if a.db != nil {
		keep("database", a.db.Close())
	}
	a.logger.Debug("Shutdown complete")
	return first
}
