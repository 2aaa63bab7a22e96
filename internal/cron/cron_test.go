package cron

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	cronv3 "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/kubernetes"

	"github.com/sendwell/sendguard/config"
	"github.com/sendwell/sendguard/dto"
	"github.com/sendwell/sendguard/interfaces"
	"github.com/sendwell/sendguard/internal/logger"
)

type mockKubernetesInterface struct {
	kubernetes.Interface
	mock.Mock
}

type recordingQueue struct {
	mu      sync.Mutex
	entries map[string]string
}

func (q *recordingQueue) Enqueue(ctx context.Context, name string, payload any, opts interfaces.EnqueueOptions) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.entries == nil {
		q.entries = map[string]string{}
	}
	q.entries[name] = opts.DedupeKey
	return nil
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func TestNewCronManager(t *testing.T) {
	cfg := &config.Config{}
	log := getLogger()
	k8s := &mockKubernetesInterface{}
	queue := &recordingQueue{}

	cm := NewCronManager(cfg, log, k8s, queue)

	assert.NotNil(t, cm)
	assert.Equal(t, cfg, cm.cfg)
	assert.Equal(t, log, cm.log)
	assert.Equal(t, k8s, cm.k8s)
	assert.NotNil(t, cm.jobIDs)
}

func TestCronManagerRegistersAllCadences(t *testing.T) {
	cfg := &config.Config{}
	log := getLogger()
	queue := &recordingQueue{}
	cm := NewCronManager(cfg, log, nil, queue)

	c := cronv3.New(cronv3.WithSeconds())
	cm.registerJobs(c)

	for _, name := range []string{"heartbeat", "health_check", "warmup_progress", "daily_report", "reset_daily_counts"} {
		_, ok := cm.jobIDs[name]
		assert.True(t, ok, "expected %s to be registered", name)
	}
}

func TestCronManagerEnqueuesWithWindowKey(t *testing.T) {
	cfg := &config.Config{}
	log := getLogger()
	queue := &recordingQueue{}
	cm := NewCronManager(cfg, log, nil, queue)

	cm.enqueue(dto.JobHealthCheck, healthCheckWindowKey())
	cm.enqueue(dto.JobDailyReport, dailyWindowKey(dto.JobDailyReport)())

	require.Len(t, queue.entries, 2)
	assert.True(t, strings.HasPrefix(queue.entries[dto.JobHealthCheck], dto.JobHealthCheck+":"))
	assert.True(t, strings.HasPrefix(queue.entries[dto.JobDailyReport], dto.JobDailyReport+":"))
}

func TestHealthCheckWindowKeyStableWithinWindow(t *testing.T) {
	first := healthCheckWindowKey()
	second := healthCheckWindowKey()
	assert.Equal(t, first, second)
}

func TestCronManager_Stop(t *testing.T) {
	cfg := &config.Config{}
	log := getLogger()
	queue := &recordingQueue{}
	cm := NewCronManager(cfg, log, &mockKubernetesInterface{}, queue)

	mockCron := cronv3.New()
	mockCron.Start()
	cm.cron = mockCron

	done := make(chan struct{})
	go func() {
		cm.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Stop did not finish")
	}

	select {
	case <-cm.stopCh:
	default:
		t.Error("Stop channel was not closed")
	}
}
