package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appAuth "github.com/yigit/studentrecords/internal/app/auth"
	appControllers "github.com/yigit/studentrecords/internal/app/controllers"
	appMigrations "github.com/yigit/studentrecords/internal/app/migrations"
	appRepos "github.com/yigit/studentrecords/internal/app/repositories"
	appRoutes "github.com/yigit/studentrecords/internal/app/routes"
	appServices "github.com/yigit/studentrecords/internal/app/services"
	"github.com/yigit/studentrecords/internal/config"
	"github.com/yigit/studentrecords/internal/db"
	appMiddleware "github.com/yigit/studentrecords/internal/middleware"
	pkgAuth "github.com/yigit/studentrecords/internal/pkg/auth"
	"github.com/yigit/studentrecords/internal/pkg/helpers"
	"github.com/yigit/studentrecords/internal/pkg/logger"
	"github.com/yigit/studentrecords/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos             *appRepos.Repositories
	StudentService    appServices.StudentService
	StudentController *appControllers.StudentController
	AuthzService      *appAuth.AuthorizationService
	AuthMiddleware    *appMiddleware.AuthMiddleware
	JWTService        *pkgAuth.JWTService
	Logger            zerolog.Logger
}

// Storage holds the open connection of the configured driver
type Storage struct {
	Driver   string
	Postgres *db.PostgresDB
	Mongo    *db.MongoDB
}

// Close releases the open connection
func (s *Storage) Close(ctx context.Context) error {
	if s.Postgres != nil {
		s.Postgres.Close()
	}
	if s.Mongo != nil {
		return s.Mongo.Close(ctx)
	}
	return nil
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: strings.ToLower(cfg.Logging.Format) == "text",
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase connects to the configured driver and prepares the schema:
// migrations for PostgreSQL, then the repository indexes for either driver.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*Storage, *appRepos.Repositories, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	storage := &Storage{Driver: cfg.Database.Driver}
	var repos *appRepos.Repositories

	lgr.Info().Str("driver", cfg.Database.Driver).Msg("Establishing database connection...")
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pg, err := db.NewPostgresDB(ctx, cfg)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to connect to PostgreSQL")
			return nil, nil, err
		}
		storage.Postgres = pg

		migrationsDir := cfg.Database.MigrationsDir
		if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
			pg.Close()
			lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
			return nil, nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
		}

		lgr.Info().Msg("Running database migrations...")
		if err := appMigrations.NewMigrator(pg.Pool).MigrateFromDirectory(ctx, migrationsDir); err != nil {
			pg.Close()
			lgr.Error().Err(err).Msg("Database migration error")
			return nil, nil, fmt.Errorf("database migrations failed: %w", err)
		}
		lgr.Info().Msg("Database migrations successfully applied.")

		repos = appRepos.NewPostgresRepositories(pg.Pool)
	case config.DriverMongo:
		mdb, err := db.NewMongoDB(ctx, cfg)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to connect to MongoDB")
			return nil, nil, err
		}
		storage.Mongo = mdb

		repos = appRepos.NewMongoRepositories(mdb.Database)
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	if err := repos.StudentRepository.EnsureIndexes(ctx); err != nil {
		_ = storage.Close(context.Background())
		return nil, nil, fmt.Errorf("failed to ensure student indexes: %w", err)
	}

	lgr.Info().Msg("Database connection successfully established.")
	return storage, repos, nil
}

// BuildDependencies initializes services, middleware and controllers on top of the repositories.
func BuildDependencies(cfg *config.Config, repos *appRepos.Repositories, lgr zerolog.Logger) *Dependencies {
	deps := &Dependencies{Repos: repos, Logger: lgr}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.StudentService = appServices.NewStudentService(repos.StudentRepository)
	deps.AuthzService = appAuth.NewAuthorizationService(deps.StudentService)
	deps.StudentController = appControllers.NewStudentController(deps.StudentService, deps.AuthzService)

	return deps
}

// SeedDemoData creates the demo students when enabled in the configuration.
func SeedDemoData(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) error {
	if !cfg.Database.SeedDemoData {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return seed.CreateDefaultData(ctx, deps.StudentService, lgr)
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger())

	appRoutes.SetupRouter(router, deps.StudentController, deps.AuthMiddleware)

	return router
}
