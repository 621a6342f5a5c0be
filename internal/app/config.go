package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Env      string `env:"APP_ENV" envDefault:"dev"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// CORS allowlist for browser clients
	CORSAllow []string `env:"CORS_ALLOW" envSeparator:"," envDefault:"http://localhost:4200"`

	// Public base URL used when building attachment links
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	UploadDir         string `env:"UPLOAD_DIR" envDefault:"./uploads"`
	MaxUploadBytes    int64  `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"` // 10 MiB per file
	MaxFilesPerUpload int    `env:"MAX_FILES_PER_UPLOAD" envDefault:"5"`

	HistoryLimit int `env:"HISTORY_LIMIT" envDefault:"100"`

	// 0 keeps empty rooms (and their history) around forever
	RoomIdleTTL time.Duration `env:"ROOM_IDLE_TTL" envDefault:"0s"`
}

// LoadConfig reads configuration from environment variables
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
