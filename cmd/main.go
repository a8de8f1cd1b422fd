package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"clickbattle/internal/adapters"
	"clickbattle/internal/bootstrap"
	"clickbattle/internal/broadcast"
	clickDelivery "clickbattle/internal/delivery/click"
	"clickbattle/internal/events"
	"clickbattle/internal/metrics"
	ownMiddleware "clickbattle/internal/middleware"
	repo "clickbattle/internal/repository"
	"clickbattle/internal/usecase/aggregator"
	"clickbattle/internal/usecase/autoclick"
	clickuc "clickbattle/internal/usecase/click"
	"clickbattle/internal/usecase/presence"
)

type dataBaseAdapters struct {
	redisAdapter *adapters.AdapterRedis
	mongoAdapter *adapters.AdapterMongo
}

func main() {
	logger := NewLogger()
	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		logger.Error("Failed to setup configuration", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleShutdown(cancel, logger)

	databaseAdapters := initDatabaseAdapters(ctx, logger, *cfg)
	defer databaseAdapters.mongoAdapter.Close(ctx)
	defer databaseAdapters.redisAdapter.Close(ctx)

	bus := events.NewBus()

	counterRepo := repo.NewCounterRepository(*cfg, logger, databaseAdapters.redisAdapter.GetClient(), databaseAdapters.mongoAdapter.Database, bus)
	presenceRepo := repo.NewRedisPresenceStorage(logger, databaseAdapters.redisAdapter.GetClient())
	sessionRepo := repo.NewRedisSessionStorage(logger, databaseAdapters.redisAdapter.GetClient())

	agg := aggregator.NewAggregator(logger)
	red, blue, err := counterRepo.TeamTotals(ctx)
	if err != nil {
		logger.Fatal("Не удалось посчитать стартовые суммы команд", zap.Error(err))
	}
	agg.Seed(red, blue)

	tracker := presence.NewTracker(logger, presenceRepo,
		time.Duration(cfg.StreakWindowMs)*time.Millisecond, cfg.PresenceTopLimit)

	broadcaster := broadcast.NewBroadcaster()
	pipeline := broadcast.NewPipeline(logger, bus, agg, tracker, broadcaster, time.Second)
	go pipeline.Run(ctx)

	clickUseCase := clickuc.NewClickUseCase(*cfg, logger, counterRepo, sessionRepo)

	ticker := autoclick.NewTicker(logger, clickUseCase, sessionRepo,
		time.Duration(cfg.AutoClickIntervalMs)*time.Millisecond)
	go ticker.Run(ctx)

	handler := clickDelivery.NewClickHandler(*cfg, logger, clickUseCase, broadcaster, ticker)

	r := chi.NewRouter()
	Router(r, handler, cfg.IsLocalCors)

	port := ":" + cfg.ServerPort
	logger.Infof("Server is running on port %s", port)
	if err := http.ListenAndServe(port, r); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger.Sugar()
}

func Router(r *chi.Mux, h *clickDelivery.ClickHandler, isLocalCors bool) {
	if isLocalCors {
		r.Use(ownMiddleware.CORS)
	}
	r.Use(middleware.Logger)

	r.Post("/register", h.HandleRegister)
	r.Post("/click", h.HandleClick)
	r.Post("/purchase", h.HandlePurchase)
	r.Get("/upgrades/{deviceId}", h.HandleUpgrades)
	r.Get("/scores", h.HandleScoresStream)
	r.Get("/presence", h.HandlePresenceStream)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.NewRegistry(), promhttp.HandlerOpts{}))
}

func initDatabaseAdapters(ctx context.Context, log *zap.SugaredLogger, cfg bootstrap.Config) *dataBaseAdapters {
	mongoAdapter := adapters.NewAdapterMongo(&cfg)
	if err := mongoAdapter.Init(ctx); err != nil {
		log.Fatal("Не удалось инициализировать MongoDB", zap.Error(err))
	}

	redisAdapter := adapters.NewAdapterRedis(&cfg)
	if err := redisAdapter.Init(ctx); err != nil {
		log.Fatal("Не удалось инициализировать Redis", zap.Error(err))
	}

	log.Info("Адаптеры баз данных инициализированы")
	return &dataBaseAdapters{
		redisAdapter: redisAdapter,
		mongoAdapter: mongoAdapter,
	}
}

func handleShutdown(cancelFunc context.CancelFunc, log *zap.SugaredLogger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("Received shutdown signal")
	cancelFunc()
	time.Sleep(1 * time.Second) // дать время закрыть соединения
}
