package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/classroom-assignments/internal/auth"
	"github.com/RubachokBoss/classroom-assignments/internal/backup"
	"github.com/RubachokBoss/classroom-assignments/internal/config"
	"github.com/RubachokBoss/classroom-assignments/internal/database"
	"github.com/RubachokBoss/classroom-assignments/internal/delivery/httpd"
	"github.com/RubachokBoss/classroom-assignments/internal/metrics"
	appmiddleware "github.com/RubachokBoss/classroom-assignments/internal/middleware"
	"github.com/RubachokBoss/classroom-assignments/internal/repository"
	"github.com/RubachokBoss/classroom-assignments/internal/service"
	"github.com/RubachokBoss/classroom-assignments/internal/service/integration"
	"github.com/RubachokBoss/classroom-assignments/internal/worker"
)

// Repositories is the storage backend selected by storage.driver.
type Repositories struct {
	Assignments repository.AssignmentRepository
	Submissions repository.SubmissionRepository
	Users       repository.UserRepository
	Pinger      httpd.Pinger
	// Snapshotter is nil for drivers that are backed up by their own tooling.
	Snapshotter backup.Snapshotter
	close       func() error
}

func (r *Repositories) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

func OpenRepositories(cfg *config.Config, log zerolog.Logger) (*Repositories, error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, err
		}
		pg := repository.NewPostgresRepository(db, log)
		if err := pg.Ping(context.Background()); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		log.Info().Msg("Database connection established")
		return postgresRepositories(db, pg, log), nil

	default:
		store, err := repository.OpenBolt(cfg.Storage.BoltPath, log)
		if err != nil {
			return nil, err
		}
		return &Repositories{
			Assignments: repository.NewBoltAssignmentRepository(store),
			Submissions: repository.NewBoltSubmissionRepository(store),
			Users:       repository.NewBoltUserRepository(store),
			Pinger:      store,
			Snapshotter: store,
			close:       store.Close,
		}, nil
	}
}

func postgresRepositories(db *sql.DB, pg *repository.PostgresRepository, log zerolog.Logger) *Repositories {
	return &Repositories{
		Assignments: repository.NewAssignmentRepository(db, log),
		Submissions: repository.NewSubmissionRepository(db, log),
		Users:       repository.NewUserRepository(db, log),
		Pinger:      pg,
		close:       db.Close,
	}
}

type App struct {
	server    *http.Server
	logger    zerolog.Logger
	config    *config.Config
	repos     *Repositories
	pool      *worker.WorkerPool
	publisher integration.EventPublisher
	backups   *backup.Runner
	cancel    context.CancelFunc
}

func New(cfg *config.Config, log zerolog.Logger) (*App, error) {
	repos, err := OpenRepositories(cfg, log)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	pool := worker.NewWorkerPool(cfg.Workers.Count, cfg.Workers.QueueSize, log)
	m.WatchQueue(pool)

	// Создаем интеграционные клиенты
	var broker integration.EventPublisher = integration.NewNopPublisher()
	if cfg.RabbitMQ.Enabled {
		client, err := integration.NewRabbitMQClient(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
		if err != nil {
			// Продолжаем без RabbitMQ, события не публикуются
			log.Warn().Err(err).Msg("RabbitMQ unavailable, events disabled")
		} else {
			broker = client
		}
	}
	publisher := integration.NewAsyncPublisher(broker, pool, m, log)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)

	// Создаем сервисы
	userService := service.NewUserService(repos.Users, tokens, log)
	assignmentService := service.NewAssignmentService(repos.Assignments, repos.Submissions, publisher, m, log)
	submissionService := service.NewSubmissionService(repos.Assignments, repos.Submissions, publisher, m, log)
	reviewService := service.NewReviewService(repos.Assignments, repos.Submissions, repos.Users, publisher, m, log)

	handler := httpd.NewHandler(
		userService,
		assignmentService,
		submissionService,
		reviewService,
		tokens,
		repos.Pinger,
		pool,
		log,
	)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(appmiddleware.RequestLogger(log))
	router.Use(appmiddleware.Recovery(log))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	router.Use(appmiddleware.NewCORS(cfg.CORS))
	router.Use(m.Middleware)

	router.Handle("/metrics", m.Handler())
	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		server:    server,
		logger:    log,
		config:    cfg,
		repos:     repos,
		pool:      pool,
		publisher: publisher,
		backups:   newBackupRunner(cfg, repos, log),
	}, nil
}

// NewBackupRunner builds the snapshot uploader for the configured store. It
// fails for drivers that have no snapshot support.
func NewBackupRunner(cfg *config.Config, repos *Repositories, log zerolog.Logger) (*backup.Runner, error) {
	if repos.Snapshotter == nil {
		return nil, fmt.Errorf("storage driver %q does not support snapshots", cfg.Storage.Driver)
	}
	objects, err := backup.NewMinIOStore(cfg.Backup, log)
	if err != nil {
		return nil, err
	}
	return backup.NewRunner(repos.Snapshotter, objects, cfg.Backup.Prefix, log), nil
}

func newBackupRunner(cfg *config.Config, repos *Repositories, log zerolog.Logger) *backup.Runner {
	if cfg.Backup.Interval <= 0 {
		return nil
	}
	runner, err := NewBackupRunner(cfg, repos, log)
	if err != nil {
		log.Warn().Err(err).Msg("Scheduled backups disabled")
		return nil
	}
	return runner
}

// scheduleBackups hands a snapshot task to the worker pool on every tick.
func (a *App) scheduleBackups(ctx context.Context) {
	ticker := time.NewTicker(a.config.Backup.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok := a.pool.Submit(func(ctx context.Context) {
				ctx, cancel := context.WithTimeout(ctx, a.config.Backup.Timeout)
				defer cancel()
				if _, err := a.backups.RunAndPrune(ctx, a.config.Backup.Keep); err != nil {
					a.logger.Error().Err(err).Msg("Scheduled backup failed")
				}
			})
			if !ok {
				a.logger.Warn().Msg("Worker queue full, backup skipped")
			}
		}
	}
}

func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if err := a.pool.Start(context.Background()); err != nil {
		return err
	}
	if a.backups != nil {
		go a.scheduleBackups(ctx)
	}

	a.logger.Info().Msgf("Starting classroom service on %s", a.config.Server.Address)
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down classroom service...")

	// Останавливаем сервер
	err := a.server.Shutdown(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to shutdown HTTP server")
	}

	if a.cancel != nil {
		a.cancel()
	}

	if err := a.pool.Stop(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to stop worker pool")
	}

	if err := a.publisher.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close event publisher")
	}

	// Закрываем хранилище
	if err := a.repos.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close storage")
	}

	a.logger.Info().Msg("Classroom service stopped")
	return err
}
