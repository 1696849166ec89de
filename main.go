package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/classroom-assignments/internal/app"
	"github.com/RubachokBoss/classroom-assignments/internal/auth"
	"github.com/RubachokBoss/classroom-assignments/internal/config"
	"github.com/RubachokBoss/classroom-assignments/internal/database"
	"github.com/RubachokBoss/classroom-assignments/internal/models"
	"github.com/RubachokBoss/classroom-assignments/internal/service"
	"github.com/RubachokBoss/classroom-assignments/pkg/logger"
)

func main() {
	// Парсинг аргументов командной строки
	migrateCmd := flag.NewFlagSet("migrate", flag.ExitOnError)
	migrateDirection := migrateCmd.String("direction", "up", "direction of migration (up/down)")

	adduserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	name := adduserCmd.String("name", "", "full name")
	email := adduserCmd.String("email", "", "login email")
	password := adduserCmd.String("password", "", "password (min 6 characters)")
	position := adduserCmd.String("position", models.PositionStudent, "teacher or student")
	overwrite := adduserCmd.Bool("overwrite", false, "update the user if the email exists")

	backupCmd := flag.NewFlagSet("backup", flag.ExitOnError)
	keep := backupCmd.Int("keep", 0, "snapshots to keep after upload (0 keeps backup.keep)")

	cfg, log := bootstrap()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			migrateCmd.Parse(os.Args[2:])
			runMigrations(cfg, log, *migrateDirection)
			return
		case "adduser":
			adduserCmd.Parse(os.Args[2:])
			runAddUser(cfg, log, &models.CreateUserRequest{
				Name:     *name,
				Email:    *email,
				Password: *password,
				Position: *position,
			}, *overwrite)
			return
		case "backup":
			backupCmd.Parse(os.Args[2:])
			runBackup(cfg, log, *keep)
			return
		case "serve":
		default:
			log.Fatal().Str("command", os.Args[1]).Msg("Unknown command. Use 'serve', 'migrate', 'adduser' or 'backup'")
		}
	}

	application, err := app.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	// Контекст для graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	go func() {
		if err := application.Run(); err != nil {
			log.Fatal().Err(err).Msg("Failed to run application")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown gracefully")
	}
}

func bootstrap() (*config.Config, zerolog.Logger) {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	return cfg, logger.NewWithConfig(cfg.Logging.Level, cfg.Logging.Pretty, cfg.Logging.NoColor)
}

func runMigrations(cfg *config.Config, log zerolog.Logger, direction string) {
	if cfg.Storage.Driver != config.StoragePostgres {
		log.Info().Str("driver", cfg.Storage.Driver).Msg("Storage driver needs no migrations")
		return
	}

	migrator, err := database.NewMigrator(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create migrator")
	}

	switch direction {
	case "up":
		if err := migrator.Up(); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		log.Info().Msg("Migrations applied successfully")
	case "down":
		if err := migrator.Down(); err != nil {
			log.Fatal().Err(err).Msg("Failed to rollback migrations")
		}
		log.Info().Msg("Migrations rolled back successfully")
	default:
		log.Fatal().Msg("Invalid migration direction. Use 'up' or 'down'")
	}
}

func runAddUser(cfg *config.Config, log zerolog.Logger, req *models.CreateUserRequest, overwrite bool) {
	repos, err := app.OpenRepositories(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer repos.Close()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	users := service.NewUserService(repos.Users, tokens, log)

	user, err := users.SaveUser(context.Background(), req, overwrite)
	if err != nil {
		repos.Close()
		log.Fatal().Err(err).Msg("Failed to save user")
	}

	log.Info().
		Str("user_id", user.ID).
		Str("email", user.Email).
		Str("position", user.Position).
		Msg("User saved")
}

// runBackup uploads one snapshot of the bolt file. The server holds the file
// lock, so run it while the server is stopped or use backup.interval instead.
func runBackup(cfg *config.Config, log zerolog.Logger, keep int) {
	if keep < 1 {
		keep = cfg.Backup.Keep
	}

	repos, err := app.OpenRepositories(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer repos.Close()

	runner, err := app.NewBackupRunner(cfg, repos, log)
	if err != nil {
		repos.Close()
		log.Fatal().Err(err).Msg("Failed to create backup runner")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Backup.Timeout)
	defer cancel()

	key, err := runner.RunAndPrune(ctx, keep)
	if err != nil {
		cancel()
		repos.Close()
		log.Fatal().Err(err).Msg("Backup failed")
	}

	log.Info().Str("key", key).Msg("Backup completed")
}
