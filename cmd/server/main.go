package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/loreline/loreline/internal/accounts"
	"github.com/loreline/loreline/internal/boot"
	"github.com/loreline/loreline/internal/config"
	"github.com/loreline/loreline/internal/docstore"
	"github.com/loreline/loreline/internal/export"
	"github.com/loreline/loreline/internal/handlers"
	"github.com/loreline/loreline/internal/identity"
	"github.com/loreline/loreline/internal/importer"
	"github.com/loreline/loreline/internal/logger"
	"github.com/loreline/loreline/internal/media"
	"github.com/loreline/loreline/internal/objectstore"
	"github.com/loreline/loreline/internal/server"
	"github.com/loreline/loreline/internal/sourcestore"
	"github.com/loreline/loreline/internal/version"
)

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideSourceStore(lc fx.Lifecycle, cfg config.Config, runtimeConfig *boot.RuntimeConfig) (*sourcestore.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, disconnect, err := sourcestore.Open(ctx, runtimeConfig.MongoURI, cfg.Mongo.Database)
	if err != nil {
		return nil, fmt.Errorf("source store connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return disconnect(ctx)
		},
	})
	return store, nil
}

// provideDocStore connects Firestore when a project is configured, and falls
// back to the in-memory store in constrained/mock mode.
func provideDocStore(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) (docstore.Store, error) {
	if cfg.Firestore.ProjectID == "" {
		log.Warn("no firestore project configured, using in-memory document store")
		return docstore.NewMemoryStore(), nil
	}
	store, err := docstore.NewFirestoreStore(context.Background(), cfg.Firestore.ProjectID, cfg.Firestore.CredentialsFile)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

func provideAccounts(log *slog.Logger, cfg config.Config) (accounts.Provider, error) {
	if cfg.Firestore.ProjectID == "" {
		log.Warn("no firebase project configured, using in-memory identity provider")
		return accounts.NewMemoryProvider(), nil
	}
	return accounts.NewFirebaseProvider(context.Background(), cfg.Firestore.ProjectID, cfg.Firestore.CredentialsFile)
}

func provideObjectStorage(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) (objectstore.Storage, error) {
	if cfg.Storage.Backend != "gcs" {
		log.Warn("using in-memory object storage", slog.String("backend", cfg.Storage.Backend))
		return objectstore.NewMemoryStorage(), nil
	}
	storage, err := objectstore.NewGCSStorage(context.Background(), cfg.Firestore.CredentialsFile)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return storage.Close()
		},
	})
	return storage, nil
}

func provideMediaMigrator(log *slog.Logger, storage objectstore.Storage, cfg config.Config) *media.Migrator {
	return media.NewMigrator(log, storage, cfg.Storage.SourceBucket, cfg.Storage.TargetBucket, cfg.Storage.PublicBaseURL)
}

func provideReconciler(log *slog.Logger, store docstore.Store, provider accounts.Provider, migrator *media.Migrator) *identity.Reconciler {
	return identity.NewReconciler(log, store, provider, migrator)
}

func provideExporter(log *slog.Logger, source *sourcestore.Store, store docstore.Store) *export.Exporter {
	return export.NewExporter(log, source, store)
}

func provideImporter(log *slog.Logger, store docstore.Store, reconciler *identity.Reconciler, migrator *media.Migrator) *importer.Importer {
	return importer.NewImporter(log, store, reconciler, migrator)
}

func provideAuthHandler(log *slog.Logger, cfg config.Config, runtimeConfig *boot.RuntimeConfig) *handlers.AuthHandler {
	return handlers.NewAuthHandler(log, cfg.Admin, runtimeConfig.JwtSecret, runtimeConfig.JwtExpiresIn)
}

func provideMigrationHandler(log *slog.Logger, cfg config.Config, exp *export.Exporter, imp *importer.Importer) *handlers.MigrationHandler {
	return handlers.NewMigrationHandler(log, exp, imp, cfg.Import)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	RuntimeConfig  *boot.RuntimeConfig
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.RuntimeConfig.ServerAddr, params.RuntimeConfig.JwtSecret, params.ServerHandlers...)
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func main() {
	fx.New(
		fx.Provide(
			provideConfig,
			boot.ProvideRuntimeConfig,
			provideLogger,

			provideSourceStore,
			provideDocStore,
			provideAccounts,
			provideObjectStorage,

			provideMediaMigrator,
			provideReconciler,
			provideExporter,
			provideImporter,

			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(provideAuthHandler),
			provideServerHandler(provideMigrationHandler),

			provideServer,
		),
		fx.Invoke(
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func startServer(
	lc fx.Lifecycle,
	logger *slog.Logger,
	srv *server.Server,
	shutdowner fx.Shutdowner,
) {
	fmt.Printf("Starting Loreline migration server %s\n", version.GetInfo())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
