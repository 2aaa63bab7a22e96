package config

import (
	internal_config "github.com/sendwell/sendguard/internal/config"
	"github.com/sendwell/sendguard/internal/logger"
	"github.com/sendwell/sendguard/internal/tracing"
)

type Config struct {
	AppConfig      *internal_config.AppConfig
	DatabaseConfig *internal_config.DatabaseConfig
	RedisConfig    *internal_config.RedisConfig
	VaultConfig    *internal_config.VaultConfig
	QueueConfig    *internal_config.QueueConfig
	ProbeConfig    *internal_config.ProbeConfig
	Logger         *logger.Config
	Tracing        *tracing.JaegerConfig
}
