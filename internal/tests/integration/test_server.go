//go:build integration

package integration

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"os"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"team-coordinator/internal/config"
	v1 "team-coordinator/internal/http/v1"
	"team-coordinator/internal/lib/clock"
	"team-coordinator/internal/lib/jwt"
	"team-coordinator/internal/lib/migrator"
	"team-coordinator/internal/lock"
	"team-coordinator/internal/repo"
	"team-coordinator/internal/service"
	"team-coordinator/internal/storage/postgresql"
)

const jwtSecret = "integration-secret"

type TestServer struct {
	DB      *sqlx.DB
	Storage *postgresql.Storage
	Server  *httptest.Server
	Redis   *miniredis.Miniredis

	Teams   *repo.TeamRepo
	Members *repo.MembershipRepo
	Users   *repo.UserRepo
}

func pgConfig() config.PostgresConfig {
	cfg := config.PostgresConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "postgres",
		Password: "postgres",
		DbName:   "teams_db",
		SslMode:  "disable",
	}
	if host := os.Getenv("PG_HOST"); host != "" {
		cfg.Host = host
	}
	return cfg
}

func NewTestServer() (*TestServer, error) {
	cfg := pgConfig()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	if err := migrator.RunMigrations(cfg, log); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	storage := postgresql.New(db)

	mr, err := miniredis.Run()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to start redis: %w", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	guard := lock.NewGuard(log, lock.NewRedisLocker(client, "test:lock:"), lock.Policy{
		Wait:     2 * time.Second,
		TTL:      10 * time.Second,
		Attempts: 5,
		Backoff:  20 * time.Millisecond,
	}, nil)

	teamRepo := repo.NewTeamRepo(db)
	membershipRepo := repo.NewMembershipRepo(db)
	userRepo := repo.NewUserRepo(db)
	clk := clock.New()

	deps := &v1.RouterDependencies{
		TeamService:  service.NewTeamService(log, teamRepo, membershipRepo, userRepo, storage, guard, clk),
		UserService:  service.NewUserService(log, userRepo, membershipRepo),
		StatsService: service.NewStatsService(log, repo.NewStatsRepo(db), clk),
		JWTSecret:    jwtSecret,
		Registry:     prometheus.NewRegistry(),
	}

	r := chi.NewRouter()
	v1.SetupRoutes(r, deps, log)

	return &TestServer{
		DB:      db,
		Storage: storage,
		Server:  httptest.NewServer(r),
		Redis:   mr,
		Teams:   teamRepo,
		Members: membershipRepo,
		Users:   userRepo,
	}, nil
}

func (s *TestServer) LoadFixtures() error {
	if _, err := s.DB.Exec(`TRUNCATE user_team, team, users RESTART IDENTITY CASCADE`); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}

	fixtures := `
		INSERT INTO users(id, username, user_account, user_role) VALUES
			(1, 'Alice', 'alice', 0),
			(2, 'Bob', 'bob', 0),
			(3, 'Carol', 'carol', 0),
			(4, 'David', 'david', 0),
			(5, 'Eve', 'eve', 0),
			(6, 'Frank', 'frank', 0),
			(7, 'Grace', 'grace', 0),
			(8, 'Heidi', 'heidi', 0),
			(9, 'Root', 'root', 1);
		SELECT setval('users_id_seq', 9);
	`

	if _, err := s.DB.Exec(fixtures); err != nil {
		return fmt.Errorf("failed to load fixtures: %w", err)
	}

	return nil
}

func (s *TestServer) Token(userID int64) string {
	token, err := jwt.GenerateToken(userID, jwtSecret, time.Hour)
	if err != nil {
		panic(err)
	}
	return token
}

func (s *TestServer) MemberCount(teamID int64) (int, error) {
	return s.Members.CountByTeam(context.Background(), teamID)
}

func (s *TestServer) Close() {
	s.Server.Close()
	s.Redis.Close()
	s.DB.Close()
}
