package cron

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v6"
	cronv3 "github.com/robfig/cron/v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/sendwell/sendguard/config"
	"github.com/sendwell/sendguard/dto"
	"github.com/sendwell/sendguard/interfaces"
	cron_config "github.com/sendwell/sendguard/internal/cron/config"
	"github.com/sendwell/sendguard/internal/logger"
	"github.com/sendwell/sendguard/internal/tracing"
	"github.com/sendwell/sendguard/internal/utils"
)

// CONSTANTS
const (
	// GroupOrchestrator is the group for orchestrator cadence jobs
	GroupOrchestrator = "orchestrator"

	// LeaseDuration is how long a lease lasts before needing renewal
	LeaseDuration = 15 * time.Second
	// RenewDeadline is how long a leader has to renew its lease
	RenewDeadline = 10 * time.Second
	// RetryPeriod is how long to wait between leadership attempts
	RetryPeriod = 2 * time.Second
)

// LOCK MANAGEMENT
var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupOrchestrator: new(sync.Mutex),
	},
}

// CronManager owns the recurring cadences. It does not run the work inline;
// each tick pushes a dedupe-keyed job into the durable queue so a missed or
// doubled tick cannot double the work.
type CronManager struct {
	cfg    *config.Config
	log    logger.Logger
	cron   *cronv3.Cron
	k8s    kubernetes.Interface
	queue  interfaces.JobQueue
	stopCh chan struct{}
	jobIDs map[string]cronv3.EntryID
}

func NewCronManager(cfg *config.Config, log logger.Logger, k8s kubernetes.Interface, queue interfaces.JobQueue) *CronManager {
	return &CronManager{
		cfg:    cfg,
		log:    log,
		k8s:    k8s,
		queue:  queue,
		stopCh: make(chan struct{}),
		jobIDs: make(map[string]cronv3.EntryID),
	}
}

// Start initializes and starts the cron manager with leader election
// If k8s is nil, it will start in local mode without leader election
func (cm *CronManager) Start(podName, namespace string) error {
	if cm.k8s == nil || os.Getenv("LOCAL_DEV") == "true" {
		cm.log.Info("Starting cron manager in local mode")
		cm.StartCron()
		return nil
	}

	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      "sendguard-cron-leader",
			Namespace: namespace,
		},
		Client: cm.k8s.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: podName,
		},
	}

	errCh := make(chan error, 1)

	go func() {
		le, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
			Lock:            lock,
			ReleaseOnCancel: true,
			LeaseDuration:   LeaseDuration,
			RenewDeadline:   RenewDeadline,
			RetryPeriod:     RetryPeriod,
			Callbacks: leaderelection.LeaderCallbacks{
				OnStartedLeading: func(ctx context.Context) {
					cm.StartCron()
				},
				OnStoppedLeading: func() {
					cm.log.Info("Leader lost - stopping crons")
					cm.Stop()
				},
				OnNewLeader: func(identity string) {
					cm.log.Infof("New leader elected: %s", identity)
				},
			},
		})
		if err != nil {
			errCh <- err
			return
		}

		ctx := context.Background()
		le.Run(ctx)
	}()

	// Wait briefly to see if leader election fails immediately
	select {
	case err := <-errCh:
		cm.log.Warnf("Leader election failed, falling back to local mode: %v", err)
		cm.StartCron()
	case <-time.After(5 * time.Second):
	}

	return nil
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		<-ctx.Done()
	}
	close(cm.stopCh)
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron) {
	var cronConfig cron_config.Config
	if err := env.Parse(&cronConfig); err != nil {
		cm.log.Fatalf("Failed to parse cron config from environment: %v", err)
	}

	if cronConfig.CronScheduleHeartbeat != "" {
		podName := os.Getenv("POD_NAME")
		if podName == "" {
			podName = "local"
		}
		id, err := c.AddFunc(cronConfig.CronScheduleHeartbeat, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.log.Infof("Cron heartbeat from pod: %s", podName)
		})
		if err != nil {
			cm.log.Fatalf("Could not add heartbeat cron job: %v", err)
		}
		cm.jobIDs["heartbeat"] = id
		cm.log.Infof("Registered heartbeat job with schedule: %s", cronConfig.CronScheduleHeartbeat)
	}

	cm.registerEnqueueJob(c, "health_check", cronConfig.CronScheduleHealthCheck, dto.JobHealthCheck, healthCheckWindowKey)
	cm.registerEnqueueJob(c, "warmup_progress", cronConfig.CronScheduleWarmupProgress, dto.JobWarmupProgress, dailyWindowKey(dto.JobWarmupProgress))
	cm.registerEnqueueJob(c, "daily_report", cronConfig.CronScheduleDailyReport, dto.JobDailyReport, dailyWindowKey(dto.JobDailyReport))
	cm.registerEnqueueJob(c, "reset_daily_counts", cronConfig.CronScheduleResetDailyCounts, dto.JobResetDailyCounts, dailyWindowKey(dto.JobResetDailyCounts))
}

func (cm *CronManager) registerEnqueueJob(c *cronv3.Cron, entryName, schedule, jobName string, dedupeKey func() string) {
	if schedule == "" {
		return
	}
	id, err := c.AddFunc(schedule, func() {
		defer tracing.RecoverAndLogToJaeger(cm.log)
		jobLocks.locks[GroupOrchestrator].Lock()
		defer jobLocks.locks[GroupOrchestrator].Unlock()
		cm.enqueue(jobName, dedupeKey())
	})
	if err != nil {
		cm.log.Fatalf("Could not add %s cron job: %v", entryName, err)
	}
	cm.jobIDs[entryName] = id
	cm.log.Infof("Registered %s job with schedule: %s", entryName, schedule)
}

func (cm *CronManager) enqueue(jobName, dedupeKey string) {
	ctx := context.Background()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.enqueue")
	defer span.Finish()
	tracing.TagComponentCronJob(span)
	tracing.TagJob(span, jobName)

	err := cm.queue.Enqueue(ctx, jobName, nil, interfaces.EnqueueOptions{DedupeKey: dedupeKey})
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to enqueue %s: %v", jobName, err)
		return
	}

	cm.log.Infof("Enqueued %s (%s)", jobName, dedupeKey)
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() {
	cm.log.Info("Starting cron manager")
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	}
	c := cronv3.New(cronOptions...)
	cm.registerJobs(c)
	c.Start()
	cm.cron = c
}

// healthCheckWindowKey scopes the fleet check to its 15-minute window
func healthCheckWindowKey() string {
	window := utils.Now().Truncate(15 * time.Minute)
	return fmt.Sprintf("%s:%s", dto.JobHealthCheck, window.Format("2006-01-02T15:04"))
}

// dailyWindowKey scopes a once-a-day job to its calendar day
func dailyWindowKey(jobName string) func() string {
	return func() string {
		return fmt.Sprintf("%s:%s", jobName, utils.ToDate(utils.Now()))
	}
}
