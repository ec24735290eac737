package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	cancelReservationHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/cancel_reservation"
	createBookingHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/create_booking"
	getAvailableSlotsHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/get_available_slots"
	getClientReservationsHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/get_client_reservations"
	getPolicyHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/get_policy"
	getReservationHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/get_reservation"
	getSpecialistReservationsHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/get_specialist_reservations"
	updatePolicyHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/update_policy"
	updateReservationStatusHandler "github.com/m04kA/SMC-SchedulingService/internal/api/handlers/update_reservation_status"
	"github.com/m04kA/SMC-SchedulingService/internal/api/middleware"
	"github.com/m04kA/SMC-SchedulingService/internal/config"
	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/infra/migrations"
	catalogRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/catalog"
	"github.com/m04kA/SMC-SchedulingService/internal/infra/storage/memory"
	policyRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/policy"
	reservationRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/reservation"
	usersRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/users"
	workingHoursRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/workinghours"
	userServiceClient "github.com/m04kA/SMC-SchedulingService/internal/integrations/userservice"
	"github.com/m04kA/SMC-SchedulingService/internal/service/conflicts"
	"github.com/m04kA/SMC-SchedulingService/internal/service/directory"
	policyService "github.com/m04kA/SMC-SchedulingService/internal/service/policy"
	reservationsService "github.com/m04kA/SMC-SchedulingService/internal/service/reservations"
	createBookingUC "github.com/m04kA/SMC-SchedulingService/internal/usecase/create_booking"
	getAvailableSlotsUC "github.com/m04kA/SMC-SchedulingService/internal/usecase/get_available_slots"
	"github.com/m04kA/SMC-SchedulingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-SchedulingService/pkg/locker"
	"github.com/m04kA/SMC-SchedulingService/pkg/logger"
	"github.com/m04kA/SMC-SchedulingService/pkg/metrics"
	"github.com/m04kA/SMC-SchedulingService/pkg/txmanager"
)

// storage набор хранилищ выбранного бэкенда
type storage struct {
	reservations interface {
		createBookingUC.ReservationRepository
		reservationsService.ReservationRepository
		conflicts.ReservationReader
		getAvailableSlotsUC.ReservationReader
	}
	workingHours getAvailableSlotsUC.WorkingHoursStore
	catalog      getAvailableSlotsUC.ServiceCatalog
	policies  policyService.PolicyRepository
	users     directory.UserSource
	txManager createBookingUC.TransactionManager
	close     func()
}

func main() {
	configPath := "config.toml"
	if v := os.Getenv("SCHEDULING_CONFIG"); v != "" {
		configPath = v
	}

	// Загружаем конфигурацию
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-SchedulingService...")
	log.Info("Configuration loaded from %s", configPath)

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	ctx := context.Background()

	// Хранилище
	var store *storage
	switch cfg.Storage.Backend {
	case config.StorageBackendMemory:
		store = newMemoryStorage()
		log.Warn("Using in-memory storage, data will be lost on restart")
	default:
		store, err = newPostgresStorage(ctx, cfg, metricsCollector, stopMetricsCh, log)
		if err != nil {
			log.Fatal("Failed to initialize postgres storage: %v", err)
		}
	}
	defer store.close()

	// Справочник пользователей: UserService, если задан URL
	users := store.users
	if cfg.UserService.URL != "" {
		client := userServiceClient.NewClient(
			cfg.UserService.URL,
			time.Duration(cfg.UserService.Timeout)*time.Second,
			log,
		)
		users = userServiceClient.Degrading{Client: client}
		log.Info("UserService client initialized (url=%s, timeout=%ds)", cfg.UserService.URL, cfg.UserService.Timeout)
	}

	// Блокировки критической секции бронирования
	var bookingLocker locker.Locker
	switch cfg.Locking.Backend {
	case config.LockingBackendRedis:
		redisClient, err := locker.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("Failed to connect to redis: %v", err)
		}
		defer redisClient.Close()

		bookingLocker = locker.NewRedisLocker(redisClient, locker.RedisOptions{
			TTL:            cfg.Locking.TTL(),
			RetryInterval:  cfg.Locking.RetryInterval(),
			AcquireTimeout: cfg.Locking.AcquireTimeout(),
			Logger:         log,
		})
		log.Info("Redis locker initialized (addr=%s)", cfg.Redis.Addr)
	default:
		bookingLocker = locker.NewMemoryLocker()
		log.Info("In-process locker initialized")
	}
	if metricsCollector != nil {
		bookingLocker = locker.Instrumented(bookingLocker, cfg.Locking.Backend, metricsCollector)
	}

	defaults := domain.SchedulingPolicy{
		SundayClosed:        cfg.Scheduling.SundayClosed,
		EnforceWorkingHours: cfg.Scheduling.EnforceWorkingHours,
	}

	// Инициализируем сервисы
	policySvc := policyService.NewService(store.policies, defaults, log)
	directorySvc := directory.NewService(users, log)
	reservationSvc := reservationsService.NewService(store.reservations, log)
	conflictValidator := conflicts.NewValidator(store.reservations)

	// Инициализируем use cases
	createBookingUseCase := createBookingUC.NewUseCase(
		store.reservations,
		conflictValidator,
		store.catalog,
		store.workingHours,
		policySvc,
		directorySvc,
		bookingLocker,
		store.txManager,
		log,
	).WithLockTimeout(cfg.Locking.AcquireTimeout())
	if metricsCollector != nil {
		createBookingUseCase.WithAttemptRecorder(metricsCollector)
	}

	getAvailableSlotsUseCase := getAvailableSlotsUC.NewUseCase(
		getAvailableSlotsUC.NewCalculator(store.workingHours, store.reservations, policySvc, log),
		store.catalog,
		directorySvc,
		log,
	)

	// Инициализируем handlers
	getAvailableSlots := getAvailableSlotsHandler.NewHandler(getAvailableSlotsUseCase, log)
	createBooking := createBookingHandler.NewHandler(createBookingUseCase, log)
	getReservation := getReservationHandler.NewHandler(reservationSvc, log)
	cancelReservation := cancelReservationHandler.NewHandler(reservationSvc, log)
	updateReservationStatus := updateReservationStatusHandler.NewHandler(reservationSvc, log)
	getClientReservations := getClientReservationsHandler.NewHandler(reservationSvc, log)
	getSpecialistReservations := getSpecialistReservationsHandler.NewHandler(reservationSvc, log)
	getPolicy := getPolicyHandler.NewHandler(policySvc, log)
	updatePolicy := updatePolicyHandler.NewHandler(policySvc, log)

	// Настраиваем роутер
	r := mux.NewRouter()
	r.Use(middleware.RequestID)

	if metricsCollector != nil {
		r.Use(middleware.MetricsMiddleware(metricsCollector))
		r.Handle(cfg.Metrics.Path, metricsCollector.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	// Свободные слоты специалиста на дату
	api.HandleFunc("/availability", getAvailableSlots.Handle).Methods(http.MethodGet)

	// Действующая политика расписания специалиста
	api.HandleFunc("/specialists/{specialistId}/policy", getPolicy.Handle).Methods(http.MethodGet)

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID header)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth)

	// Изменяющие запросы дополнительно ограничены по частоте
	mutating := protected.PathPrefix("").Subrouter()
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst, metricsCollector)
		mutating.Use(limiter.Middleware)
		log.Info("Rate limiting enabled (%d req/min, burst=%d)", cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	}

	// --- Бронирования ---
	mutating.HandleFunc("/reservations", createBooking.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/reservations/{reservationId}", getReservation.Handle).Methods(http.MethodGet)
	mutating.HandleFunc("/reservations/{reservationId}/cancel", cancelReservation.Handle).Methods(http.MethodPost)
	mutating.HandleFunc("/reservations/{reservationId}/status", updateReservationStatus.Handle).Methods(http.MethodPost)

	// --- Истории и расписания ---
	protected.HandleFunc("/clients/{clientId}/reservations", getClientReservations.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/specialists/{specialistId}/reservations", getSpecialistReservations.Handle).Methods(http.MethodGet)

	// --- Политика специалиста ---
	mutating.HandleFunc("/specialists/{specialistId}/policy", updatePolicy.Handle).Methods(http.MethodPut)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Останавливаем сбор метрик connection pool
	close(stopMetricsCh)

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}

func newMemoryStorage() *storage {
	mem := memory.NewStore()
	return &storage{
		reservations: mem.Reservations(),
		workingHours: mem.WorkingHours(),
		catalog:      mem.Catalog(),
		policies:     mem.Policies(),
		users:        mem.Users(),
		txManager:    txmanager.Noop{},
		close:        func() {},
	}
}

func newPostgresStorage(
	ctx context.Context,
	cfg *config.Config,
	metricsCollector *metrics.Metrics,
	stopMetricsCh <-chan struct{},
	log *logger.Logger,
) (*storage, error) {
	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	if cfg.Database.AutoMigrate {
		migrator, err := migrations.NewMigrator(db, log)
		if err != nil {
			db.Close()
			return nil, err
		}
		if err := migrator.Up(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	// collector должен быть nil-интерфейсом, если метрики выключены
	var collector dbmetrics.Collector
	if metricsCollector != nil {
		collector = metricsCollector
	}
	wrappedDB := dbmetrics.WrapWithDefault(db, collector, stopMetricsCh)
	if collector != nil {
		log.Info("Database metrics collection started")
	}

	return &storage{
		reservations: reservationRepo.NewRepository(wrappedDB),
		workingHours: workingHoursRepo.NewRepository(wrappedDB),
		catalog:      catalogRepo.NewRepository(wrappedDB),
		policies:     policyRepo.NewRepository(wrappedDB),
		users:        usersRepo.NewRepository(wrappedDB),
		txManager:    txmanager.NewTransactionManager(wrappedDB),
		close:        func() { db.Close() },
	}, nil
}
