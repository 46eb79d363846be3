// Package app assembles the content stack from configuration. Both the
// HTTP server and the pbctl CLI build on it.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gogotex/pagebuilder/internal/authz"
	"github.com/gogotex/pagebuilder/internal/config"
	"github.com/gogotex/pagebuilder/internal/content/repository"
	"github.com/gogotex/pagebuilder/internal/database"
	"github.com/gogotex/pagebuilder/internal/document"
	"github.com/gogotex/pagebuilder/internal/editor"
	"github.com/gogotex/pagebuilder/internal/hooks"
	"github.com/gogotex/pagebuilder/internal/persistor"
	"github.com/gogotex/pagebuilder/internal/revision"
	"github.com/gogotex/pagebuilder/internal/scope"
	"github.com/gogotex/pagebuilder/internal/sessions"
	"github.com/gogotex/pagebuilder/internal/storage"
	"github.com/gogotex/pagebuilder/internal/tokens"
	"github.com/gogotex/pagebuilder/internal/users"
	"github.com/gogotex/pagebuilder/pkg/logger"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

type App struct {
	Config    *config.Config
	Repo      *repository.Repository
	Documents *document.Registry
	Editor    *editor.Service
	Actions   *editor.Ajax
	Authz     authz.Authorizer
	Stores    scope.Resolver
	Persistor persistor.DataPersistor
	Editors   *users.Service
	Sessions  *sessions.Service
	Revoker   tokens.Revoker
	Redis     *redis.Client
	Header    *hooks.Action[io.Writer]
	Footer    *hooks.Action[io.Writer]
	Checks    map[string]Check

	closers []func(context.Context) error
}

// backends groups what the storage driver provides.
type backends struct {
	contents  repository.Store
	revisions revision.Store
	editors   users.EditorRepository
	sessions  sessions.Repository
}

// New connects the configured backends and wires the content stack. az
// decides permissions: claims based for the server, static for the CLI.
func New(ctx context.Context, cfg *config.Config, az authz.Authorizer) (*App, error) {
	a := &App{
		Config: cfg,
		Authz:  az,
		Stores: scope.ContextResolver{Default: cfg.Store.DefaultID},
		Header: hooks.NewAction[io.Writer]("header"),
		Footer: hooks.NewAction[io.Writer]("footer"),
		Checks: map[string]Check{},
	}

	b, err := a.connectStorage(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.connectRedis(ctx, b)
	if err := a.connectArchive(ctx, b); err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.Editors = users.NewService(b.editors)
	a.Sessions = sessions.NewService(b.sessions)

	a.Documents = document.NewRegistry(&document.Env{Editors: a.Editors, PreviewBaseURL: cfg.Preview.BaseURL})
	a.Repo = repository.New(b.contents, a.Documents, az, a.Stores, repository.WithRevisions(b.revisions))
	a.Documents.UseRepository(a.Repo)

	a.Editor = editor.NewService(a.Documents)
	a.Actions = editor.NewAjax(az)
	a.Actions.OnRegister().Add(a.Editor.RegisterActions, hooks.DefaultPriority)
	return a, nil
}

func (a *App) connectStorage(ctx context.Context) (*backends, error) {
	cfg := a.Config
	b := &backends{sessions: sessions.NewMemoryRepository()}

	switch cfg.Storage.Driver {
	case config.DriverMongo:
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5, time.Second)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Disconnect)
		a.Checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }

		db := client.Database(cfg.MongoDB.Database)
		if b.contents, err = repository.NewMongoStore(ctx, db.Collection("contents"), db.Collection("counters")); err != nil {
			return nil, err
		}
		if b.revisions, err = revision.NewMongoStore(ctx, db.Collection("content_revisions")); err != nil {
			return nil, err
		}
		if b.sessions, err = sessions.NewMongoRepository(ctx, db.Collection("sessions")); err != nil {
			return nil, err
		}
		b.editors = users.NewMongoEditorRepository(db.Collection("editors"))

	case config.DriverPostgres:
		pool, err := database.ConnectPostgres(ctx, database.PostgresOptions{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
		}, cfg.Postgres.Timeout)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { pool.Close(); return nil })
		a.Checks["postgres"] = pool.Ping
		if cfg.Postgres.Migrate {
			if err := database.Migrate(ctx, pool); err != nil {
				return nil, err
			}
		}
		b.contents = repository.NewPostgresStore(pool)
		b.revisions = revision.NewPostgresStore(pool)
		b.editors = a.postgresEditors(ctx)

	default:
		b.contents = repository.NewMemoryStore()
		b.revisions = revision.NewMemoryStore()
		b.editors = users.NewMemoryEditorRepository()
	}
	logger.Infof("content storage: %s", cfg.Storage.Driver)
	return b, nil
}

// postgresEditors picks the editor directory for the postgres driver:
// Mongo when a URI is configured, memory otherwise.
func (a *App) postgresEditors(ctx context.Context) users.EditorRepository {
	if a.Config.MongoDB.URI == "" {
		return users.NewMemoryEditorRepository()
	}
	client, err := database.ConnectMongo(ctx, a.Config.MongoDB.URI, a.Config.MongoDB.Timeout)
	if err != nil {
		logger.Warnf("editor directory: MongoDB unavailable, using memory: %v", err)
		return users.NewMemoryEditorRepository()
	}
	a.closers = append(a.closers, client.Disconnect)
	return users.NewMongoEditorRepository(client.Database(a.Config.MongoDB.Database).Collection("editors"))
}

// connectRedis switches form persistence, sessions and token revocation
// to Redis when it is configured and reachable.
func (a *App) connectRedis(ctx context.Context, b *backends) {
	a.Persistor = persistor.NewMemoryPersistor(0)
	a.Revoker = tokens.NewMemoryRevocations()

	addr := a.Config.Redis.Addr()
	if addr == "" {
		return
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: a.Config.Redis.Password, DB: a.Config.Redis.DB})
	a.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warnf("failed to connect to Redis (%s), using in-process state: %v", addr, err)
		_ = client.Close()
		delete(a.Checks, "redis")
		return
	}
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })
	a.Redis = client
	a.Persistor = persistor.NewRedisPersistor(client, "", 0)
	a.Revoker = tokens.NewRedisRevocations(client)
	b.sessions = sessions.NewRedisRepository(client, "")
	logger.Infof("connected to Redis: %s", addr)
}

// connectArchive copies every revision to MinIO when an endpoint is set.
func (a *App) connectArchive(ctx context.Context, b *backends) error {
	if !a.Config.MinIO.Enabled() {
		return nil
	}
	blobs, err := storage.NewMinIOStorage(ctx, a.Config.MinIO)
	if err != nil {
		return fmt.Errorf("revision archive: %w", err)
	}
	b.revisions = revision.Tee{Primary: b.revisions, Archives: []revision.Store{revision.NewBlobStore(blobs)}}
	logger.Infof("archiving revisions to MinIO bucket %s", a.Config.MinIO.Bucket)
	return nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warnf("shutdown: %v", err)
		}
	}
	a.closers = nil
}
