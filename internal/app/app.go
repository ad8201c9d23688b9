package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"team-coordinator/internal/app/rest"
	"team-coordinator/internal/config"
	v1 "team-coordinator/internal/http/v1"
	"team-coordinator/internal/lib/clock"
	"team-coordinator/internal/lib/logger/sl"
	"team-coordinator/internal/lib/migrator"
	"team-coordinator/internal/lock"
	"team-coordinator/internal/repo"
	"team-coordinator/internal/repo/memory"
	"team-coordinator/internal/service"
	"team-coordinator/internal/storage/postgresql"
)

type App struct {
	log     *slog.Logger
	storage *postgresql.Storage
	redis   *redis.Client
	restApp *rest.App
}

// stores groups the storage-side dependencies of the services.
type stores struct {
	teams   service.TeamStore
	members service.MembershipStore
	users   service.UserDirectory
	stats   service.StatsProvider
	tx      service.Transactor
}

func MustNew(log *slog.Logger, cfg *config.Config) *App {
	const op = "app.MustNew"

	a := &App{log: log}

	st := a.mustInitStorage(cfg)
	locker := a.mustInitLocker(cfg)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	guard := lock.NewGuard(log, locker, lock.Policy{
		Wait:     cfg.Lock.Wait,
		TTL:      cfg.Lock.TTL,
		Attempts: cfg.Lock.Attempts,
		Backoff:  cfg.Lock.Backoff,
	}, lock.NewMetrics(registry))

	clk := clock.New()

	teamService := service.NewTeamService(log, st.teams, st.members, st.users, st.tx, guard, clk)
	userService := service.NewUserService(log, st.users, st.members)
	statsService := service.NewStatsService(log, st.stats, clk)

	routerDependencies := v1.RouterDependencies{
		TeamService:  teamService,
		UserService:  userService,
		StatsService: statsService,
		JWTSecret:    cfg.Auth.JWTSecret,
		Registry:     registry,
	}

	a.restApp = rest.New(
		log,
		&routerDependencies,
		cfg.Server,
	)

	log.With(slog.String("op", op)).Info("application assembled",
		slog.String("storage", cfg.Storage.Driver),
		slog.String("lock", cfg.Lock.Driver))

	return a
}

func (a *App) mustInitStorage(cfg *config.Config) stores {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		store := memory.New()
		if cfg.Storage.SeedFile != "" {
			n, err := store.LoadUsers(cfg.Storage.SeedFile)
			if err != nil {
				a.log.Error("failed to load seed users", sl.Err(err))
				panic(err)
			}
			a.log.Info("seed users loaded", slog.Int("count", n))
		}

		return stores{
			teams:   store.Teams(),
			members: store.Memberships(),
			users:   store.Users(),
			stats:   store.Stats(),
			tx:      store,
		}

	default:
		if err := migrator.RunMigrations(cfg.Postgres, a.log); err != nil {
			a.log.Error("failed to run migrations", sl.Err(err))
			panic(err)
		}

		a.storage = postgresql.Init(cfg.Postgres)
		db := a.storage.GetDB()

		return stores{
			teams:   repo.NewTeamRepo(db),
			members: repo.NewMembershipRepo(db),
			users:   repo.NewUserRepo(db),
			stats:   repo.NewStatsRepo(db),
			tx:      a.storage,
		}
	}
}

func (a *App) mustInitLocker(cfg *config.Config) lock.Locker {
	if cfg.Lock.Driver == config.LockDriverLocal {
		return lock.NewLocalLocker()
	}

	client, err := lock.NewRedisClient(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		a.log.Error("failed to connect to redis", sl.Err(err))
		panic(err)
	}
	a.redis = client

	return lock.NewRedisLocker(client, cfg.Lock.Prefix)
}

func (a *App) MustRun() {
	const op = "app.MustRun"
	a.log.With(slog.String("op", op)).Info("starting application")

	if err := a.restApp.Run(); err != nil {
		panic(err)
	}
}

func (a *App) GracefulShutdown() {
	const op = "app.GracefulShutdown"
	log := a.log.With(slog.String("op", op))
	log.Info("shutting down application")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.restApp.Stop(ctx); err != nil {
		log.Error("failed to stop HTTP server", sl.Err(err))
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Error("failed to close redis client", sl.Err(err))
		}
	}

	if a.storage != nil {
		a.storage.Close()
		log.Info("database connection closed")
	}
}
