package internal

import "time"

type Config struct {
	Host          string `env:"HOST,default=0.0.0.0"`
	Port          int    `env:"PORT,default=4000"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN,default=*"`
	LogLevel      string `env:"LOG_LEVEL,default=INFO"`

	// Relational store holding users, threads, participants and messages.
	DatabasePath string `env:"DATABASE_PATH,default=chat-relay.db"`

	// Key-value store backing per-room history and, unless STANDALONE is
	// set, the cross-process broadcast backbone.
	RedisAddr     string `env:"REDIS_ADDR,default=localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	// Retention bound and sliding expiry of each room's history log.
	HistoryLimit int           `env:"HISTORY_LIMIT,default=1000"`
	HistoryTTL   time.Duration `env:"HISTORY_TTL,default=720h"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	DeliveryTimeout      time.Duration `env:"DELIVERY_TIMEOUT,default=5s"`

	// Standalone keeps fan-out in-process instead of going through redis
	// pub/sub. Single-process deployments only.
	Standalone bool `env:"STANDALONE,default=false"`

	// MultiRoom lets a connection stay in previously joined rooms on a new
	// join. The default policy leaves every room but the connection's own
	// identity channel first.
	MultiRoom bool `env:"MULTI_ROOM,default=false"`

	// AuthSecret enables bearer-token verification on every request.
	// Leaving it empty keeps the permissive development-only authorizer.
	AuthSecret string `env:"AUTH_SECRET"`
}
