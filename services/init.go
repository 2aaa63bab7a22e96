package services

import (
	"github.com/redis/go-redis/v9"

	"github.com/sendwell/sendguard/config"
	"github.com/sendwell/sendguard/interfaces"
	"github.com/sendwell/sendguard/internal/logger"
	"github.com/sendwell/sendguard/internal/queue"
	"github.com/sendwell/sendguard/internal/repository"
	"github.com/sendwell/sendguard/services/dispatcher"
	"github.com/sendwell/sendguard/services/events"
	"github.com/sendwell/sendguard/services/health"
	"github.com/sendwell/sendguard/services/prober"
	"github.com/sendwell/sendguard/services/report"
	"github.com/sendwell/sendguard/services/vault"
	"github.com/sendwell/sendguard/services/warmup"
)

type Services struct {
	Vault           interfaces.CredentialVault
	Prober          interfaces.ConnectivityProber
	Notifier        interfaces.Notifier
	HealthMonitor   interfaces.HealthMonitor
	WarmupScheduler interfaces.WarmupScheduler
	ReportGenerator interfaces.ReportGenerator
	Dispatcher      interfaces.Dispatcher
	JobQueue        interfaces.JobQueue
	FailureCounter  interfaces.FailureCounter
	RedisClient     *redis.Client
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	vaultService, err := vault.NewVaultService(cfg.VaultConfig)
	if err != nil {
		return nil, err
	}

	redisClient, err := queue.NewRedisClient(cfg.RedisConfig)
	if err != nil {
		return nil, err
	}

	var notifier interfaces.Notifier
	if cfg.AppConfig.RabbitMQURL != "" {
		notifier, err = events.NewRabbitMQNotifier(cfg.AppConfig.RabbitMQURL, log)
		if err != nil {
			return nil, err
		}
	} else {
		log.Warn("RABBITMQ_URL not set, notifications go to the log only")
		notifier = events.NewLogNotifier(log)
	}

	failureCounter := queue.NewFailureCounter(redisClient)
	jobQueue := queue.NewJobQueue(repos.JobRepository, cfg.QueueConfig)
	proberService := prober.NewProberService(cfg.ProbeConfig)

	healthService := health.NewHealthService(
		repos.AccountRepository,
		vaultService,
		proberService,
		jobQueue,
		notifier,
		failureCounter,
		log,
	)
	warmupService := warmup.NewWarmupService(repos.AccountRepository, log)
	reportService := report.NewReportService(repos.AccountRepository, notifier, log)
	dispatcherService := dispatcher.NewDispatcherService(
		repos.AccountRepository,
		healthService,
		warmupService,
		reportService,
		log,
	)

	return &Services{
		Vault:           vaultService,
		Prober:          proberService,
		Notifier:        notifier,
		HealthMonitor:   healthService,
		WarmupScheduler: warmupService,
		ReportGenerator: reportService,
		Dispatcher:      dispatcherService,
		JobQueue:        jobQueue,
		FailureCounter:  failureCounter,
		RedisClient:     redisClient,
	}, nil
}
