package main

import "time"

type Config struct {
	Host         string        `env:"HOST,default=127.0.0.1"`
	Port         int           `env:"PORT,default=5000"`
	HistoryDir   string        `env:"HISTORY_DIR,default=history"`
	PollInterval time.Duration `env:"POLL_INTERVAL,default=2s"`
	LogLevel     string        `env:"LOG_LEVEL,default=info"`
}
