package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	internal_config "github.com/sendwell/sendguard/internal/config"
	"github.com/sendwell/sendguard/internal/logger"
	"github.com/sendwell/sendguard/internal/tracing"
)

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:      &internal_config.AppConfig{},
		DatabaseConfig: &internal_config.DatabaseConfig{},
		RedisConfig:    &internal_config.RedisConfig{},
		VaultConfig:    &internal_config.VaultConfig{},
		QueueConfig:    &internal_config.QueueConfig{},
		ProbeConfig:    &internal_config.ProbeConfig{},
		Logger:         &logger.Config{},
		Tracing:        &tracing.JaegerConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading sendguard config: %v", err)
	}

	return config, nil
}
