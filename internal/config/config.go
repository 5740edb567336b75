package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr        string
	DatabaseURL     string
	RedisAddr       string
	RedisPassword   string
	EventsChannel   string
	HoldTTL         time.Duration
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	LogLevel        string
	LogPretty       bool
}

func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CLINIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("database.url", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("events.channel", "clinic.booking.events")
	v.SetDefault("hold.ttl", "2m")
	v.SetDefault("cors.origins", "http://localhost:5173,http://127.0.0.1:5173")
	v.SetDefault("shutdown.timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	_ = v.BindEnv("http.addr", "CLINIC_HTTP_ADDR", "HTTP_ADDR")
	_ = v.BindEnv("database.url", "CLINIC_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("redis.addr", "CLINIC_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "CLINIC_REDIS_PASSWORD", "REDIS_PASSWORD")
	_ = v.BindEnv("events.channel", "CLINIC_EVENTS_CHANNEL")
	_ = v.BindEnv("hold.ttl", "CLINIC_HOLD_TTL", "HOLD_TTL")
	_ = v.BindEnv("cors.origins", "CLINIC_CORS_ORIGINS", "CORS_ORIGINS")
	_ = v.BindEnv("shutdown.timeout", "CLINIC_SHUTDOWN_TIMEOUT", "SHUTDOWN_TIMEOUT")
	_ = v.BindEnv("log.level", "CLINIC_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log.pretty", "CLINIC_LOG_PRETTY")

	holdTTL, err := time.ParseDuration(v.GetString("hold.ttl"))
	if err != nil {
		return Config{}, err
	}
	shutdownTimeout, err := time.ParseDuration(v.GetString("shutdown.timeout"))
	if err != nil {
		return Config{}, err
	}

	return Config{
		HTTPAddr:        strings.TrimSpace(v.GetString("http.addr")),
		DatabaseURL:     v.GetString("database.url"),
		RedisAddr:       strings.TrimSpace(v.GetString("redis.addr")),
		RedisPassword:   v.GetString("redis.password"),
		EventsChannel:   v.GetString("events.channel"),
		HoldTTL:         holdTTL,
		CORSOrigins:     parseCSV(v.GetString("cors.origins")),
		ShutdownTimeout: shutdownTimeout,
		LogLevel:        v.GetString("log.level"),
		LogPretty:       v.GetBool("log.pretty"),
	}, nil
}

func parseCSV(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
