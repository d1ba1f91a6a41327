// Command server runs the warehouse RBAC API.
//
//	@title						Fabric Warehouse RBAC API
//	@version					1.0
//	@description				Authentication, user administration and role-based access control for the fabric warehouse.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	_ "github.com/fabricwh/rbac-api/docs"
	"github.com/fabricwh/rbac-api/internal/api"
	"github.com/fabricwh/rbac-api/internal/api/handler"
	"github.com/fabricwh/rbac-api/internal/core/ports"
	"github.com/fabricwh/rbac-api/internal/core/service"
	"github.com/fabricwh/rbac-api/internal/infrastructure/config"
	mongostore "github.com/fabricwh/rbac-api/internal/infrastructure/db/mongo"
	pgstore "github.com/fabricwh/rbac-api/internal/infrastructure/db/postgres"
	redisstore "github.com/fabricwh/rbac-api/internal/infrastructure/db/redis"
	"github.com/fabricwh/rbac-api/internal/infrastructure/queue"
	"github.com/fabricwh/rbac-api/internal/infrastructure/security"
	"github.com/fabricwh/rbac-api/pkg/logger"
)

const serviceName = "rbac-api"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.New(logger.Options{Service: serviceName})
		bootLog.Fatal().Err(err).Msg("load config")
	}

	log := logger.New(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Output:  os.Stdout,
		Service: serviceName,
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// repositories is the storage backend selected by STORE_DRIVER.
type repositories struct {
	users       ports.UserRepository
	roles       ports.RoleRepository
	permissions ports.PermissionRepository
	audit       ports.AuditRepository
	ping        handler.PingFunc
	close       func(context.Context) error
}

func openStore(ctx context.Context, cfg *config.Config) (*repositories, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := pgstore.Open(ctx, pgstore.Config{DSN: cfg.Postgres.DSN, MaxOpenConns: cfg.Postgres.MaxOpenConns})
		if err != nil {
			return nil, err
		}
		if err := pgstore.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &repositories{
			users:       pgstore.NewUserRepository(db),
			roles:       pgstore.NewRoleRepository(db),
			permissions: pgstore.NewPermissionRepository(db),
			audit:       pgstore.NewAuditRepository(db),
			ping:        db.PingContext,
			close:       func(context.Context) error { return db.Close() },
		}, nil

	default:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &repositories{
			users:       mongostore.NewUserRepository(db),
			roles:       mongostore.NewRoleRepository(db),
			permissions: mongostore.NewPermissionRepository(db),
			audit:       mongostore.NewAuditRepository(db),
			ping:        func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:       client.Disconnect,
		}, nil
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Storage ---
	repos, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := repos.close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("store close")
		}
	}()
	pingers := map[string]handler.Pinger{cfg.Store.Driver: repos.ping}

	// --- Permission cache (optional) ---
	var cache ports.PermissionCache
	if cfg.CacheEnabled() {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn().Err(err).Msg("redis close")
			}
		}()
		cache = redisstore.NewPermissionCache(rdb, cfg.Redis.PermissionCacheTTL)
		pingers["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		log.Info().Dur("ttl", cfg.Redis.PermissionCacheTTL).Msg("permission cache enabled")
	}
	perms := service.NewCachedPermissions(repos.roles, cache, log)

	// --- Security ---
	tokens := security.NewJWTManager(cfg.JWT.Secret, cfg.JWT.TTL)
	hasher := security.NewBcryptHasher(cfg.Auth.BcryptCost)

	// --- Audit trail ---
	auditService := service.NewAuditService(repos.audit, log)
	dispatcher := queue.NewDispatcher(cfg.AuditWorkers, auditService, log)
	dispatcher.Start()

	// --- Core services ---
	resolver := service.NewIdentityResolver(tokens, repos.users, perms, log)
	authService := service.NewAuthService(repos.users, tokens, hasher, dispatcher, cfg.Auth.DefaultRole, log)
	userService := service.NewUserService(repos.users, hasher, dispatcher, cfg.Auth.DefaultRole, log)
	roleService := service.NewRoleService(repos.roles, repos.permissions, perms, dispatcher, log)

	catalogSync := service.NewCatalogSync(repos.permissions, repos.roles, repos.users, hasher, perms, service.BootstrapAdmin{
		Username: cfg.Admin.Username,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
	}, log)
	if err := catalogSync.Run(ctx); err != nil {
		return err
	}

	// --- HTTP ---
	e := api.NewRouter(api.Dependencies{
		Auth:           authService,
		Users:          userService,
		Roles:          roleService,
		Audit:          auditService,
		Resolver:       resolver,
		Pingers:        pingers,
		LoginRateLimit: cfg.Auth.LoginRateLimit,
		Production:     cfg.Env == "production",
		Log:            log,
	})
	e.Server.ReadHeaderTimeout = 10 * time.Second

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Store.Driver).Msg("server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		// Stop accepting requests first so no new audit entries arrive.
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
		if err := dispatcher.Stop(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("audit dispatcher did not drain")
		}
		return nil
	})

	return g.Wait()
}
