package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"

	"github.com/sendwell/sendguard/dto"
	"github.com/sendwell/sendguard/interfaces"
	"github.com/sendwell/sendguard/internal/logger"
	"github.com/sendwell/sendguard/internal/tracing"
	"github.com/sendwell/sendguard/internal/utils"
)

const (
	ExchangeNotifications = "sendguard-notifications"

	RoutingKeyAccountPaused = "account-paused"
	RoutingKeyJobFailed     = "job-failed"
	RoutingKeyDailyReport   = "daily-report"

	DefaultPublishTimeout   = 5 * time.Second
	DefaultReconnectBackoff = time.Second
)

type RabbitMQNotifier struct {
	connection      *amqp091.Connection
	connectionMutex sync.Mutex
	publishChannel  *amqp091.Channel
	publishMutex    sync.Mutex
	url             string
	logger          logger.Logger
}

func NewRabbitMQNotifier(rabbitmqURL string, log logger.Logger) (*RabbitMQNotifier, error) {
	notifier := &RabbitMQNotifier{
		url:    rabbitmqURL,
		logger: log,
	}

	if err := notifier.connect(); err != nil {
		return nil, err
	}

	return notifier, nil
}

func (r *RabbitMQNotifier) connect() error {
	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()

	conn, err := amqp091.Dial(r.url)
	if err != nil {
		return errors.Wrap(err, "failed to connect to RabbitMQ")
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "failed to open publish channel")
	}

	err = ch.ExchangeDeclare(ExchangeNotifications, "topic", true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return errors.Wrap(err, "failed to declare notifications exchange")
	}

	r.connection = conn
	r.publishChannel = ch
	return nil
}

func (r *RabbitMQNotifier) ensureChannel() error {
	if r.connection == nil || r.connection.IsClosed() {
		time.Sleep(DefaultReconnectBackoff)
		return r.connect()
	}
	return nil
}

type accountPausedEvent struct {
	AccountID string    `json:"accountId"`
	Reason    string    `json:"reason"`
	PausedAt  time.Time `json:"pausedAt"`
}

type jobFailedEvent struct {
	JobName  string    `json:"jobName"`
	JobID    string    `json:"jobId"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failedAt"`
}

func (r *RabbitMQNotifier) NotifyAccountPaused(ctx context.Context, accountID, reason string) error {
	return r.publish(ctx, "RabbitMQNotifier.NotifyAccountPaused", RoutingKeyAccountPaused, accountPausedEvent{
		AccountID: accountID,
		Reason:    reason,
		PausedAt:  utils.Now(),
	})
}

func (r *RabbitMQNotifier) NotifyJobFailed(ctx context.Context, jobName, jobID, errMsg string) error {
	return r.publish(ctx, "RabbitMQNotifier.NotifyJobFailed", RoutingKeyJobFailed, jobFailedEvent{
		JobName:  jobName,
		JobID:    jobID,
		Error:    errMsg,
		FailedAt: utils.Now(),
	})
}

func (r *RabbitMQNotifier) PublishDailyReport(ctx context.Context, report *dto.ReportSummary) error {
	return r.publish(ctx, "RabbitMQNotifier.PublishDailyReport", RoutingKeyDailyReport, report)
}

func (r *RabbitMQNotifier) publish(ctx context.Context, operationName, routingKey string, message any) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, operationName)
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("routingKey", routingKey)

	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	if err := r.ensureChannel(); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	body, err := json.Marshal(message)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to marshal notification")
	}

	publishCtx, cancel := context.WithTimeout(ctx, DefaultPublishTimeout)
	defer cancel()

	err = r.publishChannel.PublishWithContext(publishCtx, ExchangeNotifications, routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    utils.Now(),
		Body:         body,
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to publish notification")
	}

	return nil
}

func (r *RabbitMQNotifier) Close() {
	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()

	if r.publishChannel != nil {
		r.publishChannel.Close()
	}
	if r.connection != nil {
		r.connection.Close()
	}
}

// logNotifier is the local-mode sink used when no RabbitMQ url is configured
type logNotifier struct {
	logger logger.Logger
}

func NewLogNotifier(log logger.Logger) interfaces.Notifier {
	return &logNotifier{logger: log}
}

func (l *logNotifier) NotifyAccountPaused(ctx context.Context, accountID, reason string) error {
	l.logger.Warnf("account %s auto-paused: %s", accountID, reason)
	return nil
}

func (l *logNotifier) NotifyJobFailed(ctx context.Context, jobName, jobID, errMsg string) error {
	l.logger.Errorf("job %s (%s) failed permanently: %s", jobName, jobID, errMsg)
	return nil
}

func (l *logNotifier) PublishDailyReport(ctx context.Context, report *dto.ReportSummary) error {
	l.logger.Infof("daily report: %d accounts, avg reputation %.1f", report.TotalAccounts, report.AvgReputation)
	return nil
}
