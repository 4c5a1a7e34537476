package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr    string
	PostgresDSN   string
	MongoURI      string
	RedisAddr     string
	RabbitURL     string
	JWTSecret     string
	JWTTTL        time.Duration
	SweepInterval time.Duration
	OTLPEndpoint  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtTTL, _ := time.ParseDuration(os.Getenv("JWT_TTL"))
	if jwtTTL == 0 {
		jwtTTL = 24 * time.Hour
	}

	sweep, _ := time.ParseDuration(os.Getenv("SWEEP_INTERVAL"))
	if sweep == 0 {
		sweep = time.Minute
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	return &Config{
		ListenAddr:    addr,
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		MongoURI:      os.Getenv("MONGO_URI"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RabbitURL:     os.Getenv("RABBIT_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTTTL:        jwtTTL,
		SweepInterval: sweep,
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}
