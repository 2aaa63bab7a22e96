package prober

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/sendwell/sendguard/dto"
	"github.com/sendwell/sendguard/interfaces"
	internal_config "github.com/sendwell/sendguard/internal/config"
	sendguard_errors "github.com/sendwell/sendguard/internal/errors"
	"github.com/sendwell/sendguard/internal/tracing"
)

const clientHelloName = "sendguard.local"

// error codes surfaced on ProbeResult
const (
	ErrCodeConnectTimeout  = "CONNECT_TIMEOUT"
	ErrCodeConnectFailed   = "CONNECT_FAILED"
	ErrCodeGreetingTimeout = "GREETING_TIMEOUT"
	ErrCodeGreetingFailed  = "GREETING_FAILED"
	ErrCodeTLSFailed       = "TLS_FAILED"
	ErrCodeAuthFailed      = "AUTH_FAILED"
)

type proberService struct {
	defaultConnectTimeout  time.Duration
	defaultGreetingTimeout time.Duration
}

func NewProberService(cfg *internal_config.ProbeConfig) interfaces.ConnectivityProber {
	connectTimeout := 10 * time.Second
	greetingTimeout := 10 * time.Second
	if cfg != nil {
		if cfg.ConnectTimeoutSeconds > 0 {
			connectTimeout = time.Duration(cfg.ConnectTimeoutSeconds) * time.Second
		}
		if cfg.GreetingTimeoutSeconds > 0 {
			greetingTimeout = time.Duration(cfg.GreetingTimeoutSeconds) * time.Second
		}
	}
	return &proberService{
		defaultConnectTimeout:  connectTimeout,
		defaultGreetingTimeout: greetingTimeout,
	}
}

// Probe performs the SMTP handshake against host:port. The connect and
// greeting phases carry independent timeouts so a hung remote cannot block
// a worker past their sum.
func (s *proberService) Probe(ctx context.Context, req dto.ProbeRequest) dto.ProbeResult {
	span, _ := opentracing.StartSpanFromContext(ctx, "ProberService.Probe")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("host", req.Host, "port", req.Port)

	connectTimeout := req.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = s.defaultConnectTimeout
	}
	greetingTimeout := req.GreetingTimeout
	if greetingTimeout <= 0 {
		greetingTimeout = s.defaultGreetingTimeout
	}

	addr := fmt.Sprintf("%s:%d", req.Host, req.Port)
	conn, err := net.DialTimeout("tcp", addr, connectTimeout)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			tracing.TraceErr(span, errors.Wrap(sendguard_errors.ErrConnectivityTimeout, err.Error()))
			return failure(ErrCodeConnectTimeout, fmt.Sprintf("connection to %s timed out after %s", addr, connectTimeout))
		}
		tracing.TraceErr(span, err)
		return failure(ErrCodeConnectFailed, fmt.Sprintf("connection to %s failed: %v", addr, err))
	}
	defer conn.Close()

	// the greeting deadline covers the 220 banner and the EHLO exchange
	if err := conn.SetDeadline(time.Now().Add(greetingTimeout)); err != nil {
		tracing.TraceErr(span, err)
		return failure(ErrCodeGreetingFailed, fmt.Sprintf("setting greeting deadline failed: %v", err))
	}

	client, err := smtp.NewClient(conn, req.Host)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			tracing.TraceErr(span, errors.Wrap(sendguard_errors.ErrConnectivityTimeout, err.Error()))
			return failure(ErrCodeGreetingTimeout, fmt.Sprintf("no greeting from %s within %s", addr, greetingTimeout))
		}
		tracing.TraceErr(span, err)
		return failure(ErrCodeGreetingFailed, fmt.Sprintf("greeting from %s failed: %v", addr, err))
	}
	defer client.Close()

	if err := client.Hello(clientHelloName); err != nil {
		tracing.TraceErr(span, err)
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return failure(ErrCodeGreetingTimeout, fmt.Sprintf("EHLO to %s timed out", addr))
		}
		return failure(ErrCodeGreetingFailed, fmt.Sprintf("EHLO to %s failed: %v", addr, err))
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsConfig := &tls.Config{ServerName: req.Host}
		if err := client.StartTLS(tlsConfig); err != nil {
			tracing.TraceErr(span, err)
			return failure(ErrCodeTLSFailed, fmt.Sprintf("STARTTLS with %s failed: %v", addr, err))
		}
	}

	if req.Username != "" && req.Password != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", req.Username, req.Password, req.Host)
			if err := client.Auth(auth); err != nil {
				tracing.TraceErr(span, err)
				return failure(ErrCodeAuthFailed, fmt.Sprintf("authentication for %s rejected: %v", req.Username, err))
			}
		}
	}

	client.Quit()

	return dto.ProbeResult{
		Success: true,
		Message: fmt.Sprintf("SMTP handshake with %s succeeded", addr),
	}
}

func failure(code, message string) dto.ProbeResult {
	return dto.ProbeResult{Success: false, Message: message, ErrorCode: code}
}
