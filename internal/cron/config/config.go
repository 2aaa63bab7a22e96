package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Fleet health check, every 15 minutes
	CronScheduleHealthCheck string `env:"CRON_SCHEDULE_HEALTH_CHECK" envDefault:"0 */15 * * * *"`
	// Warmup progression, daily at 06:00 UTC
	CronScheduleWarmupProgress string `env:"CRON_SCHEDULE_WARMUP_PROGRESS" envDefault:"0 0 6 * * *"`
	// Daily fleet report, daily at 07:00 UTC
	CronScheduleDailyReport string `env:"CRON_SCHEDULE_DAILY_REPORT" envDefault:"0 0 7 * * *"`
	// Daily send counter reset, at midnight UTC
	CronScheduleResetDailyCounts string `env:"CRON_SCHEDULE_RESET_DAILY_COUNTS" envDefault:"0 0 0 * * *"`
}
