package errors

import "github.com/pkg/errors"

var (
	// account errors
	ErrAccountNotFound     = errors.New("email sending account not found")
	ErrAccountNotCheckable = errors.New("account status is not eligible for health checks")

	// credential errors
	ErrDecryptionFailed = errors.New("credential decryption failed")

	// connectivity errors
	ErrConnectivityTimeout = errors.New("connection timeout")

	// trigger / queue errors
	ErrUnknownTriggerAction = errors.New("unknown trigger action")
	ErrQueueUnavailable     = errors.New("job queue is unavailable")
	ErrUnknownJob           = errors.New("no handler registered for job")
)
