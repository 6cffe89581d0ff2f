package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"SiteWatchPlatform/internal/checker"
	"SiteWatchPlatform/internal/engine"
	"SiteWatchPlatform/internal/escalation"
	"SiteWatchPlatform/internal/notifier"
	"SiteWatchPlatform/internal/queue"
	"SiteWatchPlatform/internal/repository/postgres"
	redisrepo "SiteWatchPlatform/internal/repository/redis"
	"SiteWatchPlatform/internal/scheduler"
	"SiteWatchPlatform/internal/worker"
	"SiteWatchPlatform/pkg/config"
	"SiteWatchPlatform/pkg/connection"
	"SiteWatchPlatform/pkg/database"
	"SiteWatchPlatform/pkg/health"
	"SiteWatchPlatform/pkg/logger"
	pkg_metrics "SiteWatchPlatform/pkg/metrics"
	pkg_rabbitmq "SiteWatchPlatform/pkg/rabbitmq"
	"SiteWatchPlatform/pkg/ratelimit"
	pkg_redis "SiteWatchPlatform/pkg/redis"
)

const (
	serviceName    = "sitewatch"
	serviceVersion = "v1.0.0"
)

func main() {
	// Определяем путь к конфигурации
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("Failed to get working directory: %v", err)
	}

	configPath := ""

	// Ищем config.yaml в config/
	testPath := filepath.Join(wd, "config", "config.yaml")
	if _, err := os.Stat(testPath); err == nil {
		configPath = testPath
	}

	// Если не нашли, ищем в родительских директориях
	if configPath == "" {
		parentDir := wd
		for i := 0; i < 5; i++ {
			testPath = filepath.Join(parentDir, "config", "config.yaml")
			if _, err := os.Stat(testPath); err == nil {
				configPath = testPath
				break
			}
			parentDir = filepath.Dir(parentDir)
		}
	}

	if configPath == "" {
		log.Fatalf("Could not find config.yaml file")
	}

	// Инициализация конфигурации
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	appLogger, err := logger.NewLogger(cfg.Environment, cfg.Logger.Level, serviceName)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if err := appLogger.Sync(); err != nil {
			appLogger.Error("Error syncing logger", logger.Error(err))
		}
	}()

	appLogger.Info("Starting sitewatch service",
		logger.String("version", serviceVersion),
		logger.String("service", serviceName))

	// Инициализация retry конфигурации
	retryConfig := connection.DefaultRetryConfig()

	// Инициализируем метрики
	metricsInstance := pkg_metrics.NewMetrics(serviceName)

	// Инициализируем OpenTelemetry трассировку
	if err := pkg_metrics.InitializeOpenTelemetry(serviceName); err != nil {
		appLogger.Warn("Failed to initialize OpenTelemetry", logger.Error(err))
	}

	ctx := context.Background()

	// Инициализируем базу данных
	dbConfig := database.NewConfig()
	dbConfig.Host = cfg.Database.Host
	dbConfig.Port = cfg.Database.Port
	dbConfig.User = cfg.Database.User
	dbConfig.Password = cfg.Database.Password
	dbConfig.Database = cfg.Database.Name

	// Подключение к базе данных с retry логикой
	var db *database.Postgres
	err = connection.WithRetry(ctx, retryConfig, func(ctx context.Context) error {
		var err error
		db, err = database.Connect(ctx, dbConfig)
		return err
	})
	if err != nil {
		appLogger.Error("Failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	appLogger.Info("Connected to database",
		logger.String("host", dbConfig.Host),
		logger.String("database", dbConfig.Database))

	// Инициализируем RabbitMQ
	rabbitConfig := pkg_rabbitmq.NewConfig()
	rabbitConfig.URL = cfg.RabbitMQ.URL
	rabbitConfig.Exchange = cfg.RabbitMQ.Exchange
	rabbitConfig.RoutingKey = cfg.RabbitMQ.RoutingKey
	rabbitConfig.Queue = cfg.RabbitMQ.Queue

	rabbitConn, err := pkg_rabbitmq.Connect(ctx, rabbitConfig)
	if err != nil {
		appLogger.Error("Failed to connect to RabbitMQ", logger.Error(err))
		os.Exit(1)
	}
	defer rabbitConn.Close()

	producer, err := pkg_rabbitmq.NewProducer(rabbitConn, rabbitConfig)
	if err != nil {
		appLogger.Error("Failed to create RabbitMQ producer", logger.Error(err))
		os.Exit(1)
	}

	// Инициализируем Redis
	redisConfig := pkg_redis.NewConfig()
	redisConfig.Addr = cfg.Redis.Addr
	redisConfig.Password = cfg.Redis.Password
	redisConfig.DB = cfg.Redis.DB
	redisConfig.PoolSize = cfg.Redis.PoolSize
	redisConfig.MinIdleConn = cfg.Redis.MinIdleConn
	redisConfig.MaxRetries = cfg.Redis.MaxRetries

	redisClient, err := pkg_redis.Connect(ctx, redisConfig)
	if err != nil {
		appLogger.Error("Failed to connect to Redis", logger.Error(err))
		os.Exit(1)
	}
	defer redisClient.Close()

	// Инициализируем health checker
	healthChecker := health.NewSimpleHealthChecker(serviceVersion)

	// Инициализируем rate limiter для HTTP запросов
	rateLimiter := ratelimit.NewRedisRateLimiter(redisClient.Client)

	// Регистрируем встроенные проверки
	defaultTimeout := time.Duration(cfg.Engine.DefaultTimeoutSeconds) * time.Second

	registry := checker.NewRegistry(appLogger)
	builtins := []checker.Check{
		checker.NewHTTPStatusCheck(defaultTimeout, appLogger),
		checker.NewLatencyCheck(defaultTimeout, 2*time.Second, 5*time.Second, appLogger),
		checker.NewContentKeywordCheck(defaultTimeout, appLogger),
		checker.NewDNSResolveCheck(appLogger),
		checker.NewTLSCertificateCheck(defaultTimeout, 14*24*time.Hour, appLogger),
		checker.NewGRPCHealthCheck(defaultTimeout, appLogger),
	}
	for _, check := range builtins {
		if err := registry.Register(check); err != nil {
			appLogger.Error("Failed to register check",
				logger.String("check", check.Name()),
				logger.Error(err))
			os.Exit(1)
		}
		appLogger.Info("Registered check", logger.String("check", check.Name()))
	}

	// Инициализируем движок выполнения проверок
	retryPolicy := engine.DefaultRetryPolicy()
	retryPolicy.MaxRetries = cfg.Engine.MaxRetries
	retryPolicy.Delay = time.Duration(cfg.Engine.RetryDelaySeconds) * time.Second
	retryPolicy.Multiplier = cfg.Engine.RetryMultiplier

	scanEngine := engine.NewEngine(registry, &engine.Config{
		DefaultTimeout: defaultTimeout,
		Retry:          retryPolicy,
	}, appLogger, metricsInstance)

	// Инициализируем репозитории
	jobRepo := postgres.NewJobRepository(db.Pool)
	targetRepo := postgres.NewTargetRepository(db.Pool)
	summaryRepo := postgres.NewSummaryRepository(db.Pool)
	escalationRepo := postgres.NewEscalationRepository(db.Pool)
	lockRepo := redisrepo.NewLockRepository(redisClient.Client)

	// Инициализируем сервис очереди заданий
	queueConfig := queue.DefaultConfig()
	queueConfig.RetryDelay = time.Duration(cfg.Queue.RetryDelaySeconds) * time.Second
	queueConfig.RetryMultiplier = cfg.Queue.RetryMultiplier
	queueConfig.DefaultMaxRetries = cfg.Queue.MaxRetries
	queueConfig.DeadLetterEnabled = cfg.Queue.DeadLetterEnabled

	queueService := queue.NewService(jobRepo, queueConfig, appLogger, metricsInstance)

	// Инициализируем отправку уведомлений через RabbitMQ
	sender := notifier.NewAMQPSender(producer, appLogger, metricsInstance)

	// Инициализируем оценщик эскалаций
	escalationConfig := escalation.DefaultConfig()
	escalationConfig.ConsecutiveFailureThreshold = cfg.Escalation.ConsecutiveFailureThreshold
	escalationConfig.FailuresInPeriodThreshold = cfg.Escalation.FailuresInPeriodThreshold
	escalationConfig.Period = time.Duration(cfg.Escalation.PeriodHours) * time.Hour
	escalationConfig.Cooldown = time.Duration(cfg.Escalation.CooldownHours) * time.Hour

	evaluator := escalation.NewEvaluator(escalationRepo, summaryRepo, registry, sender,
		escalationConfig, appLogger, metricsInstance)

	// Инициализируем worker pool
	workerPool, err := worker.NewPool(queueService, targetRepo, summaryRepo, scanEngine, evaluator,
		&worker.Config{
			WorkerCount:     cfg.Queue.Workers,
			ClaimInterval:   time.Duration(cfg.Queue.ClaimIntervalSeconds) * time.Second,
			ShutdownTimeout: 30 * time.Second,
		}, appLogger)
	if err != nil {
		appLogger.Error("Failed to create worker pool", logger.Error(err))
		os.Exit(1)
	}

	// Запускаем worker pool
	if err := workerPool.Start(ctx); err != nil {
		appLogger.Error("Failed to start worker pool", logger.Error(err))
		os.Exit(1)
	}

	// Инициализируем и запускаем планировщик
	schedulerConfig := scheduler.DefaultConfig()
	schedulerConfig.PassInterval = time.Duration(cfg.Scheduler.PassIntervalSeconds) * time.Second
	schedulerConfig.LockTTL = time.Duration(cfg.Scheduler.LockTTLSeconds) * time.Second

	sched := scheduler.NewScheduler(targetRepo, lockRepo, queueService, schedulerConfig,
		appLogger, metricsInstance)
	if err := sched.Start(); err != nil {
		appLogger.Error("Failed to start scheduler", logger.Error(err))
		os.Exit(1)
	}

	// Регистрируем обслуживающие задачи очереди: возврат зависших заданий
	// и удаление завершенных за пределами окна хранения
	jobTimeout := time.Duration(cfg.Queue.JobTimeoutSeconds) * time.Second
	retention := time.Duration(cfg.Queue.RetentionSeconds) * time.Second

	maintenanceCron := cron.New()

	sweepSpec := fmt.Sprintf("@every %s", time.Duration(cfg.Scheduler.SweepIntervalSeconds)*time.Second)
	if _, err := maintenanceCron.AddFunc(sweepSpec, func() {
		if _, err := queueService.ReleaseStale(context.Background(), jobTimeout); err != nil {
			appLogger.Error("Stale job sweep failed", logger.Error(err))
		}
	}); err != nil {
		appLogger.Error("Failed to register stale job sweep", logger.Error(err))
		os.Exit(1)
	}

	cleanupSpec := fmt.Sprintf("@every %s", time.Duration(cfg.Scheduler.CleanupIntervalHours)*time.Hour)
	if _, err := maintenanceCron.AddFunc(cleanupSpec, func() {
		if _, err := queueService.CleanupTerminal(context.Background(), retention); err != nil {
			appLogger.Error("Terminal job cleanup failed", logger.Error(err))
		}
	}); err != nil {
		appLogger.Error("Failed to register terminal job cleanup", logger.Error(err))
		os.Exit(1)
	}

	maintenanceCron.Start()

	appLogger.Info("Sitewatch service started successfully")

	// Запускаем HTTP сервер для health check и metrics
	go func() {
		mux := http.NewServeMux()

		// Rate limiting middleware
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			// Rate limiting для API запросов
			clientIP := getClientIP(r)
			allowed, err := rateLimiter.CheckRateLimit(r.Context(), clientIP, cfg.RateLimiting.RequestsPerMinute, time.Minute)
			if err != nil {
				http.Error(w, "Rate limit check failed", http.StatusInternalServerError)
				return
			}

			if !allowed {
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			// Простой health check
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Sitewatch Service is running"))
		})

		// Health endpoints
		mux.HandleFunc("/health", health.Handler(healthChecker))
		mux.HandleFunc("/ready", health.ReadyHandler())
		mux.HandleFunc("/live", health.LiveHandler())

		// Metrics endpoint
		mux.Handle("/metrics", metricsInstance.GetHandler())

		server := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: mux,
		}

		appLogger.Info("HTTP server started", logger.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed", logger.Error(err))
		}
	}()

	// Ожидаем сигналы для graceful shutdown
	awaitGracefulShutdown(appLogger, sched, maintenanceCron, workerPool)
}

// awaitGracefulShutdown ожидает сигналы для graceful shutdown
func awaitGracefulShutdown(logger logger.Logger, sched *scheduler.Scheduler, maintenanceCron *cron.Cron, workerPool *worker.Pool) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Останавливаем планировщик, чтобы не создавались новые задания
	sched.Stop()

	// Останавливаем обслуживающие задачи
	<-maintenanceCron.Stop().Done()

	// Остановка worker pool
	if err := workerPool.Stop(ctx); err != nil {
		logger.Error("Failed to stop worker pool")
	}

	logger.Info("Server stopped gracefully")
}

// getClientIP получает IP адрес клиента из запроса
func getClientIP(r *http.Request) string {
	// Проверяем X-Forwarded-For header (если за прокси)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}

	// Проверяем X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Возвращаем RemoteAddr
	return r.RemoteAddr
}
