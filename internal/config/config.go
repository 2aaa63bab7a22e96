package config

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"12333"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type DatabaseConfig struct {
	Host            string `env:"SENDGUARD_POSTGRES_HOST,required"`
	Port            string `env:"SENDGUARD_POSTGRES_PORT,required"`
	User            string `env:"SENDGUARD_POSTGRES_USER,required"`
	DBName          string `env:"SENDGUARD_POSTGRES_DB_NAME,required"`
	Password        string `env:"SENDGUARD_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"SENDGUARD_POSTGRES_DB_MAX_CONN" envDefault:"50"`
	MaxIdleConn     int    `env:"SENDGUARD_POSTGRES_DB_MAX_IDLE_CONN" envDefault:"10"`
	ConnMaxLifetime int    `env:"SENDGUARD_POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"60"`
	LogLevel        string `env:"SENDGUARD_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"SENDGUARD_POSTGRES_SSL_MODE" envDefault:"disable"`
}

type RedisConfig struct {
	URL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
}

type VaultConfig struct {
	// 64 hex chars are used directly as the AES-256 key; anything else is
	// run through scrypt with a fixed salt
	EncryptionSecret string `env:"CREDENTIAL_ENCRYPTION_SECRET,required"`
}

type QueueConfig struct {
	Concurrency        int `env:"QUEUE_CONCURRENCY" envDefault:"5"`
	MaxAttempts        int `env:"QUEUE_MAX_ATTEMPTS" envDefault:"3"`
	BackoffBaseSeconds int `env:"QUEUE_BACKOFF_BASE_SECONDS" envDefault:"5"`
	RateLimitMax       int `env:"QUEUE_RATE_LIMIT_MAX" envDefault:"10"`
	RateLimitWindowSec int `env:"QUEUE_RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`
}

type ProbeConfig struct {
	ConnectTimeoutSeconds  int `env:"PROBE_CONNECT_TIMEOUT_SECONDS" envDefault:"10"`
	GreetingTimeoutSeconds int `env:"PROBE_GREETING_TIMEOUT_SECONDS" envDefault:"10"`
}
