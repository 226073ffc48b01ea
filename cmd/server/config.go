package main

import "time"

type Config struct {
	Host            string        `env:"HOST,default=0.0.0.0"`
	Port            int           `env:"PORT,default=5000"`
	BadgerFilepath  string        `env:"BADGER_FILEPATH,default=data/server"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT,default=30s"`
	MaxConnections  int           `env:"MAX_CONNECTIONS,default=256"`
	HealthInterval  time.Duration `env:"HEALTH_INTERVAL,default=30s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=1s"`
}
