package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type (
	Config struct {
		HTTP        HTTP        `envPrefix:"HTTP_"`
		Logger      Logger      `envPrefix:"LOGGER_"`
		Tiles       Tiles       `envPrefix:"TILES_"`
		Static      Static      `envPrefix:"STATIC_"`
		Compression Compression `envPrefix:"COMPRESSION_"`
		Redis       Redis       `envPrefix:"REDIS_"`
		Telemetry   Telemetry   `envPrefix:"TELEMETRY_"`
	}

	HTTP struct {
		Server  Server        `envPrefix:"SERVER_"`
		BaseURL string        `env:"BASE_URL" validate:"omitempty,url"`
		Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
	}

	Server struct {
		Host         string        `env:"HOST" envDefault:"0.0.0.0"`
		Port         string        `env:"PORT" envDefault:"8080" validate:"required,numeric"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
		IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	}

	Logger struct {
		Level string `env:"LEVEL" envDefault:"normal"`
	}

	Tiles struct {
		// Source is an *.mbtiles file, an http(s) URL template with {z}/{x}/{y}
		// placeholders or a z/x/y directory.
		Source      string `env:"SOURCE,required" validate:"required"`
		Format      string `env:"FORMAT" envDefault:"pbf" validate:"oneof=avif jpeg jpg pbf png webp"`
		Compression string `env:"COMPRESSION" envDefault:"raw" validate:"oneof=raw gzip br"`
		TMS         bool   `env:"TMS" envDefault:"false"`
		MemoryCache bool   `env:"MEMORY_CACHE" envDefault:"false"`
		URL         string `env:"URL" envDefault:"/tiles/{z}/{x}/{y}"`
		Glyphs      string `env:"GLYPHS" envDefault:"/assets/glyphs/{fontstack}/{range}.pbf"`
		Sprites     string `env:"SPRITES" envDefault:"/assets/sprites/basics/sprites"`
	}

	Static struct {
		Dir  string `env:"DIR"`
		Mode string `env:"MODE" envDefault:"disk" validate:"oneof=disk cache"`
	}

	Compression struct {
		// Optimal recompresses content to the best encoding a client accepts.
		Optimal bool `env:"OPTIMAL" envDefault:"true"`
	}

	Redis struct {
		Enabled   bool          `env:"ENABLED" envDefault:"false"`
		Addr      string        `env:"ADDR" envDefault:"localhost:6379"`
		Password  string        `env:"PASSWORD" envDefault:""`
		DB        int           `env:"DB" envDefault:"0"`
		TTL       time.Duration `env:"TTL" envDefault:"24h"`
		KeyPrefix string        `env:"KEY_PREFIX" envDefault:"tile"`
	}

	Telemetry struct {
		Enabled        bool   `env:"ENABLED" envDefault:"false"`
		ServiceName    string `env:"SERVICE_NAME" envDefault:"tileserve"`
		ServiceVersion string `env:"SERVICE_VERSION" envDefault:"1.0.0"`
		Environment    string `env:"ENVIRONMENT" envDefault:"production"`
		OTLPEndpoint   string `env:"OTLP_ENDPOINT" envDefault:"otel-collector.observability.svc.cluster.local:4317"`
	}

	Pack struct {
		SourceDir   string `env:"SOURCE_DIR,required" validate:"required"`
		Output      string `env:"OUTPUT,required" validate:"required"`
		Name        string `env:"NAME" envDefault:"tileserve"`
		Format      string `env:"FORMAT" envDefault:"pbf" validate:"oneof=avif jpeg jpg pbf png webp"`
		Compression string `env:"COMPRESSION" envDefault:"raw" validate:"oneof=raw gzip br"`
		Logger      Logger `envPrefix:"LOGGER_"`
	}
)

func New() (*Config, error) {
	loadDotEnv()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// NewPack reads the PACK_ prefixed settings of the tilepack command.
func NewPack() (*Pack, error) {
	loadDotEnv()

	cfg, err := env.ParseAsWithOptions[Pack](env.Options{Prefix: "PACK_"})
	if err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// ResolvedBaseURL falls back to localhost on the configured port.
func (c *Config) ResolvedBaseURL() string {
	if c.HTTP.BaseURL != "" {
		return c.HTTP.BaseURL
	}
	return "http://localhost:" + c.HTTP.Server.Port + "/"
}

func loadDotEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("NOTICE: .env file not found or cannot be loaded: %v\n", err)
	}
}
