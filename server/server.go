package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"gorm.io/gorm"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/sendwell/sendguard/api"
	"github.com/sendwell/sendguard/config"
	"github.com/sendwell/sendguard/internal/cron"
	"github.com/sendwell/sendguard/internal/logger"
	"github.com/sendwell/sendguard/internal/queue"
	"github.com/sendwell/sendguard/internal/repository"
	"github.com/sendwell/sendguard/internal/tracing"
	"github.com/sendwell/sendguard/services"
	"github.com/sendwell/sendguard/services/events"
)

type Server struct {
	config       *config.Config
	log          logger.Logger
	httpServer   *http.Server
	router       *gin.Engine
	services     *services.Services
	repositories *repository.Repositories
	cronManager  *cron.CronManager
	workerPool   *queue.WorkerPool
	tracerCloser io.Closer
}

func NewServer(cfg *config.Config, db *gorm.DB) (*Server, error) {
	// Initialize logger
	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	// Initialize tracing
	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
	if err != nil {
		log.Fatalf("Could not initialize jaeger tracer: %s", err.Error())
	}
	opentracing.SetGlobalTracer(tracer)

	// Initialize repositories
	repos := repository.InitRepositories(db)

	// Initialize services
	svcs, err := services.InitServices(cfg, appLogger, repos)
	if err != nil {
		return nil, err
	}

	// Queue workers drain the durable job table through the dispatcher
	limiter := queue.NewRateLimiter(svcs.RedisClient, cfg.QueueConfig.RateLimitMax,
		time.Duration(cfg.QueueConfig.RateLimitWindowSec)*time.Second)
	workerPool := queue.NewWorkerPool(
		repos.JobRepository,
		repos.JobFailureRepository,
		svcs.Dispatcher,
		limiter,
		svcs.Notifier,
		appLogger,
		cfg.QueueConfig,
	)

	// Cron ticks push dedupe-keyed jobs into the same queue
	cronManager := cron.NewCronManager(cfg, appLogger, k8sClient(appLogger), svcs.JobQueue)

	// Initialize Gin
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	return &Server{
		config:       cfg,
		log:          appLogger,
		router:       router,
		services:     svcs,
		repositories: repos,
		cronManager:  cronManager,
		workerPool:   workerPool,
		tracerCloser: closer,
		httpServer: &http.Server{
			Addr:    ":" + cfg.AppConfig.APIPort,
			Handler: router,
		},
	}, nil
}

// k8sClient returns an in-cluster client when running under kubernetes,
// nil otherwise so the cron manager falls back to local mode
func k8sClient(log logger.Logger) kubernetes.Interface {
	k8sConfig, err := rest.InClusterConfig()
	if err != nil {
		log.Info("Not running in kubernetes, cron leader election disabled")
		return nil
	}
	clientset, err := kubernetes.NewForConfig(k8sConfig)
	if err != nil {
		log.Warnf("Failed to build kubernetes client: %v", err)
		return nil
	}
	return clientset
}

func (s *Server) Initialize(ctx context.Context) error {
	api.RegisterRoutes(ctx, s.router, s.services, s.repositories, s.config.AppConfig.APIKey)
	return nil
}

func (s *Server) recoverWithJaeger(name string) {
	if r := recover(); r != nil {
		span := opentracing.GlobalTracer().StartSpan(
			fmt.Sprintf("panic.%s", name),
		)
		defer span.Finish()

		ext.Error.Set(span, true)
		span.LogKV(
			"event", "panic",
			"process", name,
			"error", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)

		s.log.Errorf("Panic in %s: %v\n%s", name, r, debug.Stack())
	}
}

func (s *Server) wrapGoroutine(name string, fn func()) {
	defer s.recoverWithJaeger(name)
	fn()
}

func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Initialize(ctx); err != nil {
		return err
	}

	s.log.Info("Starting queue workers...")
	s.workerPool.Start(ctx)

	s.log.Info("Starting cron manager...")
	podName := os.Getenv("POD_NAME")
	namespace := os.Getenv("POD_NAMESPACE")
	if namespace == "" {
		namespace = "default"
	}
	if err := s.cronManager.Start(podName, namespace); err != nil {
		return err
	}

	go s.wrapGoroutine("http_server", func() {
		s.log.Infof("Starting HTTP server on :%s", s.config.AppConfig.APIPort)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("HTTP server error: %v", err)
		}
	})
	s.log.Info("SendGuard is now running. Press Ctrl+C to exit.")

	return s.waitForShutdown(cancel)
}

func (s *Server) waitForShutdown(cancel context.CancelFunc) error {
	defer s.recoverWithJaeger("shutdown")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	s.log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("HTTP server shutdown error: %v", err)
	}

	s.cronManager.Stop()
	cancel()

	// Wait for in-flight jobs before closing shared clients
	stopDone := make(chan struct{})
	go s.wrapGoroutine("worker_shutdown", func() {
		defer close(stopDone)
		s.workerPool.Stop()
	})

	select {
	case <-stopDone:
		s.log.Info("Queue workers stopped gracefully")
	case <-time.After(10 * time.Second):
		s.log.Warn("Queue worker stop timed out, forcing exit")
	}

	if notifier, ok := s.services.Notifier.(*events.RabbitMQNotifier); ok {
		notifier.Close()
	}
	if s.services.RedisClient != nil {
		s.services.RedisClient.Close()
	}
	if s.tracerCloser != nil {
		s.tracerCloser.Close()
	}

	return nil
}
